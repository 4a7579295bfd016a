package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emaland/spotinfer/internal/offer"
)

type fakeSource struct {
	offers []offer.Offer
	err    error
	calls  int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchOffers(ctx context.Context) ([]offer.Offer, error) {
	f.calls++
	return f.offers, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOffers() []offer.Offer {
	return []offer.Offer{
		{GPUType: "H100", PricingMode: offer.OnDemand, Price: 2.5},
		{GPUType: "h100", PricingMode: offer.Spot, Price: 1.2},
		{GPUType: "A100", PricingMode: offer.Spot, Price: 0.9},
		{GPUType: "A100", PricingMode: offer.OnDemand, Price: 1.8},
	}
}

type offersResponse struct {
	Offers []offer.Offer `json:"offers"`
	Count  int           `json:"count"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(&fakeSource{}, quietLogger(), Options{})
	rec := do(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["provider"] != "fake" {
		t.Errorf("body = %v", body)
	}
}

func TestListOffersDefaultSortsByPrice(t *testing.T) {
	s := New(&fakeSource{offers: testOffers()}, quietLogger(), Options{})
	rec := do(t, s, "/api/v1/offers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp offersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 4 || len(resp.Offers) != 4 {
		t.Fatalf("count = %d, offers = %d, want 4", resp.Count, len(resp.Offers))
	}
	for i := 1; i < len(resp.Offers); i++ {
		if resp.Offers[i].Price < resp.Offers[i-1].Price {
			t.Errorf("offers not sorted by price: %+v", resp.Offers)
		}
	}
}

func TestListOffersFilters(t *testing.T) {
	tests := []struct {
		query  string
		prices []float64
	}{
		{"?gpu_type=H100", []float64{1.2, 2.5}},
		{"?gpu_type=h100&spot=true", []float64{1.2}},
		{"?cheapest=1", []float64{0.9}},
		{"?cheapest=true&limit=3", []float64{0.9}},
		{"?limit=2", []float64{0.9, 1.2}},
		{"?sort=none&limit=1", []float64{2.5}},
		{"?max_price=1.2", []float64{0.9, 1.2}},
		{"?gpu_type=B200", []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := New(&fakeSource{offers: testOffers()}, quietLogger(), Options{})
			rec := do(t, s, "/api/v1/offers"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var resp offersResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Offers == nil {
				t.Fatal("offers should be an array, got null")
			}
			if len(resp.Offers) != len(tt.prices) || resp.Count != len(tt.prices) {
				t.Fatalf("got %d offers, want %d: %+v", len(resp.Offers), len(tt.prices), resp.Offers)
			}
			for i, p := range tt.prices {
				if resp.Offers[i].Price != p {
					t.Errorf("offers[%d].Price = %v, want %v", i, resp.Offers[i].Price, p)
				}
			}
		})
	}
}

func TestListOffersInvalidQuery(t *testing.T) {
	for _, q := range []string{"?limit=-1", "?limit=abc", "?spot=maybe", "?max_price=-2", "?sort=vram"} {
		t.Run(q, func(t *testing.T) {
			src := &fakeSource{offers: testOffers()}
			s := New(src, quietLogger(), Options{})
			rec := do(t, s, "/api/v1/offers"+q)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != codeInvalidConfiguration {
				t.Errorf("code = %q, want %q", resp.Error.Code, codeInvalidConfiguration)
			}
			if src.calls != 0 {
				t.Errorf("provider called %d times for invalid input", src.calls)
			}
		})
	}
}

func TestListOffersProviderError(t *testing.T) {
	s := New(&fakeSource{err: errors.New("upstream down")}, quietLogger(), Options{})
	rec := do(t, s, "/api/v1/offers")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != codeProviderError {
		t.Errorf("code = %q, want %q", resp.Error.Code, codeProviderError)
	}
}

func TestListGPUTypes(t *testing.T) {
	s := New(&fakeSource{offers: testOffers()}, quietLogger(), Options{})
	rec := do(t, s, "/api/v1/gpu-types")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		GPUTypes []string `json:"gpu_types"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.GPUTypes) != 2 || resp.GPUTypes[0] != "A100" || resp.GPUTypes[1] != "H100" {
		t.Errorf("gpu_types = %v, want [A100 H100]", resp.GPUTypes)
	}
}

func TestCORSHeaders(t *testing.T) {
	s := New(&fakeSource{}, quietLogger(), Options{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestNotFound(t *testing.T) {
	s := New(&fakeSource{}, quietLogger(), Options{})
	rec := do(t, s, "/api/v1/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(&fakeSource{}, quietLogger(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil after cancel", err)
	}
}
