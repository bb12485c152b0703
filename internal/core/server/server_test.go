package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/weather-dashboard/internal/core/health"
	"github.com/mohammed-shakir/weather-dashboard/internal/logger"
)

type pingRoutes struct{}

func (pingRoutes) Routes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
	r.Get("/api/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func TestNewHandler_Routes(t *testing.T) {
	ready := false
	probe := health.Probe{Name: "dataset", Check: func(context.Context) error {
		if !ready {
			return errors.New("not loaded")
		}
		return nil
	}}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	h := NewHandler(logger.Discard(), pingRoutes{}, metrics, probe)

	cases := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/api/ping", http.StatusOK},
		{"/api/panic", http.StatusInternalServerError},
		{"/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.path, rr.Code, tc.want)
		}
		if rr.Header().Get("X-Request-ID") == "" && tc.path != "/api/panic" {
			t.Fatalf("%s: missing request id", tc.path)
		}
	}

	ready = true
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz after load=%d", rr.Code)
	}
}
