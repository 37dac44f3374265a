package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"stima/internal/cache"
	"stima/internal/core"
	applog "stima/internal/log"
	"stima/internal/middleware/ratelimit"
	"stima/internal/middleware/security"
	"stima/internal/middleware/trace"
	"stima/internal/sheets"
	appweb "stima/web"
)

// Estimator produces a single estimate from named feature values.
type Estimator interface {
	FeatureNames() []string
	Predict(row map[string]float64) (float64, error)
}

// Store is the observation store seen by the handlers.
type Store interface {
	sheets.ObservationWriter
	cache.ReportSource
	Count(ctx context.Context) (int64, error)
}

// Options tunes the server; zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	ReportCacheTTL     time.Duration
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	store     Store
	reports   *cache.Reports
	estimator Estimator

	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	cacheManager    *cache.Manager
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	observationsCreated atomic.Int64
	predictions         atomic.Int64
	predictionErrors    atomic.Int64
	uptime              time.Time
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, store Store, est Estimator, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	ttl := opts.ReportCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	s := &Server{
		store:           store,
		reports:         cache.NewReports(store, ttl),
		estimator:       est,
		logger:          logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		traceMiddleware: trace.NewMiddleware(logger),
		cacheManager:    cache.NewManager(),
		appMetrics:      &appMetrics{uptime: time.Now()},
	}
	s.structured = applog.NewStructuredLogger(s.logger)

	s.reports.Register(s.cacheManager)
	s.cacheManager.StartCleanup(time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/observations", s.handleCreateObservation)
	mux.HandleFunc("/ui/report", s.handleReport)
	mux.HandleFunc("/api/observations", s.handleAPIObservations)
	mux.HandleFunc("/api/summary", s.handleAPISummary)
	mux.HandleFunc("/api/series", s.handleAPISeries)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps next, outermost first: trace, security headers, context
// logger, request id on the logger, POST rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	requestID := func(r *http.Request) string { return trace.GetRequestID(r.Context()) }

	h := s.rateLimiter.Middleware(trace.ClientIP, s.onRateLimited, http.MethodPost)(next)
	h = applog.RequestIDMiddleware(requestID)(h)
	h = applog.Middleware(s.logger)(h)
	h = headers.Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, trace.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops the background cleanups and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	"value": formatValue,
	"usd":   formatUSD,
	"date":  func(d core.Date) string { return d.String() },
}
