package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "balancetracker/internal/log"
	"balancetracker/internal/metrics"
	"balancetracker/internal/services"
	"balancetracker/internal/storage"
)

type Server struct {
	http.Server

	periods *services.PaymentPeriodService
	payees  *services.PayeeService
	repo    *storage.Repository

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, logger *applog.Logger, repo *storage.Repository, periods *services.PaymentPeriodService, payees *services.PayeeService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		periods:     periods,
		payees:      payees,
		repo:        repo,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/periods", s.handleCreatePeriod)
	mux.HandleFunc("GET /api/periods", s.handleListPeriods)
	mux.HandleFunc("GET /api/periods/{id}", s.handleGetPeriod)
	mux.HandleFunc("PUT /api/periods/{id}", s.handleUpdatePeriod)
	mux.HandleFunc("DELETE /api/periods/{id}", s.handleDeletePeriod)

	mux.HandleFunc("POST /api/periods/{id}/items", s.handleAddItem)
	mux.HandleFunc("PUT /api/periods/{id}/items/{itemID}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/periods/{id}/items/{itemID}", s.handleRemoveItem)

	mux.HandleFunc("POST /api/payees", s.handleCreatePayee)
	mux.HandleFunc("GET /api/payees", s.handleListPayees)
	mux.HandleFunc("GET /api/payees/{id}", s.handleGetPayee)
	mux.HandleFunc("PUT /api/payees/{id}", s.handleUpdatePayee)
	mux.HandleFunc("DELETE /api/payees/{id}", s.handleDeletePayee)

	handler := applog.Middleware(logger)(
		applog.RequestIDMiddleware()(
			applog.RequestLogMiddleware()(
				s.withProtection(mux))))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// withProtection applies security headers, rate limits mutating requests
// and records request metrics.
func (s *Server) withProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.rateLimiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if pattern := r.Pattern; pattern != "" {
			route = pattern
		}
		metrics.ObserveHTTPRequest(r.Method, route, statusText(sw.status), time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
