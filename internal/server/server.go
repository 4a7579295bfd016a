package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/emaland/spotinfer/internal/offer"
	"github.com/emaland/spotinfer/internal/provider"
)

const (
	codeInvalidConfiguration = "INVALID_CONFIGURATION"
	codeProviderError        = "PROVIDER_ERROR"
	codeInternalError        = "INTERNAL_ERROR"
)

type Options struct {
	// DefaultSort applies when the request has no sort parameter.
	DefaultSort string
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

type Server struct {
	src     provider.Source
	log     logrus.FieldLogger
	opts    Options
	handler http.Handler
}

func New(src provider.Source, log logrus.FieldLogger, opts Options) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = string(offer.SortPrice)
	}
	s := &Server{src: src, log: log, opts: opts}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(s.routes())
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger())
	r.Use(recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": s.src.Name()})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/offers", s.listOffers)
		v1.GET("/gpu-types", s.listGPUTypes)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "no route for "+c.Request.URL.Path))
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

func (s *Server) listOffers(c *gin.Context) {
	cfg, sortKey, err := s.parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(codeInvalidConfiguration, err.Error()))
		return
	}
	// Reject bad input before spending a provider call.
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(codeInvalidConfiguration, err.Error()))
		return
	}

	offers, err := s.src.FetchOffers(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("fetching offers")
		c.JSON(http.StatusBadGateway, errorBody(codeProviderError, err.Error()))
		return
	}
	ranked, err := offer.Rank(offers, sortKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(codeInvalidConfiguration, err.Error()))
		return
	}
	selected, err := offer.Select(ranked, cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(codeInvalidConfiguration, err.Error()))
		return
	}
	if selected == nil {
		selected = []offer.Offer{}
	}
	c.JSON(http.StatusOK, gin.H{"offers": selected, "count": len(selected)})
}

func (s *Server) listGPUTypes(c *gin.Context) {
	offers, err := s.src.FetchOffers(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("fetching offers")
		c.JSON(http.StatusBadGateway, errorBody(codeProviderError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"gpu_types": offer.SortedGPUTypes(offers)})
}

func (s *Server) parseQuery(c *gin.Context) (offer.SelectionConfig, offer.SortKey, error) {
	var cfg offer.SelectionConfig
	cfg.GPUType = strings.TrimSpace(c.Query("gpu_type"))

	var err error
	if cfg.SpotOnly, err = queryBool(c, "spot"); err != nil {
		return cfg, "", err
	}
	if cfg.CheapestOnly, err = queryBool(c, "cheapest"); err != nil {
		return cfg, "", err
	}
	if v := c.Query("limit"); v != "" {
		if cfg.Limit, err = strconv.Atoi(v); err != nil {
			return cfg, "", fmt.Errorf("%w: limit must be an integer, got %q", offer.ErrInvalidConfiguration, v)
		}
	}
	if v := c.Query("max_price"); v != "" {
		if cfg.MaxPrice, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, "", fmt.Errorf("%w: max_price must be a number, got %q", offer.ErrInvalidConfiguration, v)
		}
	}
	key, err := offer.ParseSortKey(c.DefaultQuery("sort", s.opts.DefaultSort))
	if err != nil {
		return cfg, "", err
	}
	return cfg, key, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	v := c.Query(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", offer.ErrInvalidConfiguration, name, v)
	}
	return b, nil
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"query":   c.Request.URL.RawQuery,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "an unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(codeInternalError, msg))
	})
}
