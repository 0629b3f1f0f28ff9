package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/middleware/ratelimit"
	"github.com/gladysonss/opensheets-app-sub000/internal/middleware/security"
	"github.com/gladysonss/opensheets-app-sub000/internal/middleware/trace"
	"github.com/gladysonss/opensheets-app-sub000/internal/services"
)

// Config holds the server's tunables.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	// Ready reports whether the store can serve requests; nil means always.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

// Server is the JSON API in front of the ledger service.
type Server struct {
	http.Server
	ledger  *services.LedgerService
	ready   func(ctx context.Context) error
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg Config, svc *services.LedgerService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	s := &Server{
		ledger:  svc,
		ready:   cfg.Ready,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("POST /api/transfers", s.handleCreateTransfer)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/transactions/{id}/affected", s.handleAffected)
	api.HandleFunc("POST /api/transactions/{id}/settlement", s.handleSettlement)
	api.HandleFunc("GET /api/series/{id}", s.handleGetSeries)
	api.HandleFunc("GET /api/series/{id}/eligible", s.handleEligible)
	api.HandleFunc("POST /api/series/{id}/anticipations", s.handleAnticipate)
	api.HandleFunc("GET /api/series/{id}/anticipations", s.handleAnticipationHistory)
	api.HandleFunc("GET /api/periods/{period}/summary", s.handleSummary)
	api.HandleFunc("POST /api/references", s.handleEnsureReference)
	api.HandleFunc("GET /api/references", s.handleResolveReference)

	limited := s.limiter.Middleware(func(r *http.Request) string {
		if user := sanitizeInput(r.Header.Get(HeaderUserID)); user != "" {
			return "user:" + user
		}
		return "ip:" + detector.ExtractClientIP(r)
	}, s.onRateLimited)
	mux.Handle("/api/", limited(api))

	var handler http.Handler = mux
	handler = log.Middleware(logger, trace.RequestIDFromRequest)(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldUserID, r.Header.Get(HeaderUserID))
	ErrorResponse(http.StatusTooManyRequests, "rate_limited",
		"Rate limit exceeded. Please try again later.", trace.GetRequestID(r.Context())).Write(w)
}

// Metrics exposes request and rate limit counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
