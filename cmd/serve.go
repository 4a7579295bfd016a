package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emaland/spotinfer/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve offers over an HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") && cfg.ServeAddr != "" {
				addr = cfg.ServeAddr
			}
			gin.SetMode(gin.ReleaseMode)
			log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel == "warn" {
				log.SetLevel(logrus.InfoLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := openSource(ctx)
			if err != nil {
				return err
			}
			srv := server.New(src, log, server.Options{DefaultSort: cfg.DefaultSort})
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (default from config)")
	return cmd
}
