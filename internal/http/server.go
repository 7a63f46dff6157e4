// Package http exposes the ledger over a small JSON API: transaction
// CRUD, filtered list/report views and receipt uploads.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"notaspese/internal/cache"
	"notaspese/internal/core"
	"notaspese/internal/middleware/security"
	"notaspese/internal/middleware/trace"
	"notaspese/internal/receipt"
	"notaspese/internal/report"
	"notaspese/internal/services"
)

// Extractor is the inbound port for receipt recognition; satisfied by
// *receipt.Client.
type Extractor interface {
	Extract(ctx context.Context, document []byte, filename string) (receipt.Extraction, error)
}

type Server struct {
	http.Server
	svc       *services.LedgerService
	extractor Extractor

	rateLimiter *rateLimiter

	// Derived views are cached keyed by ledger revision + filter spec, so
	// a cached entry can never be stale relative to the last mutation.
	listCache   *cache.LRUCache[[]core.Transaction]
	reportCache *cache.LRUCache[report.Summary]
	caches      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. extractor may be nil when no recognition service is configured;
// receipt uploads then answer 503.
func NewServer(addr string, svc *services.LedgerService, extractor Extractor) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc:         svc,
		extractor:   extractor,
		rateLimiter: newRateLimiter(),
		listCache:   cache.NewLRUCache[[]core.Transaction](200, 5*time.Minute),
		reportCache: cache.NewLRUCache[report.Summary](100, 5*time.Minute),
		caches:      cache.NewManager(),
	}
	s.caches.Register(s.listCache)
	s.caches.Register(s.reportCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/receipts", s.handleReceiptUpload)

	traced := trace.NewMiddleware(extractClientIP)
	secured := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:    addr,
		Handler: traced.Middleware(secured.Middleware(s.withRateLimit(mux))),
	}

	return s
}

// withRateLimit rejects clients exceeding the per-IP budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(extractClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown gracefully shuts down the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
