package api

import (
	"net/http"
	"time"

	"github.com/mtlprog/coinfolio/internal/metrics"
)

// NewRouter wires all routes behind the CORS and metrics middleware.
func NewRouter(handler *Handler, portfolio *PortfolioHandler, corsOrigin string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /coins", handler.ListCoins)
	mux.HandleFunc("GET /price/{symbol}", handler.GetPrice)
	mux.HandleFunc("GET /healthz", handler.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /portfolio", portfolio.List)
	mux.HandleFunc("POST /portfolio", portfolio.Upsert)
	mux.HandleFunc("DELETE /portfolio/{symbol}", portfolio.Remove)
	if portfolio.valuer != nil {
		mux.HandleFunc("GET /portfolio/valuation", portfolio.Valuation)
	}

	return withCORS(corsOrigin, withMetrics(mux))
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port, corsOrigin string, handler *Handler, portfolio *PortfolioHandler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler, portfolio, corsOrigin),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTP(r.Method, route, rec.status, time.Since(start))
	})
}
