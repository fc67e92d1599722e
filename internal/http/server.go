package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	appweb "expensetracker/web"
)

// ExpenseAPI is the slice of the expense service the handlers need.
type ExpenseAPI interface {
	List(ctx context.Context) (core.ExpenseList, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	DeleteByDescription(ctx context.Context, desc string) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) ([]core.CategoryTotal, error)
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	templates   *template.Template
	expenses    ExpenseAPI
	logger      *applog.Logger
	metrics     *Metrics
	rateLimiter *rateLimiter
	readyCheck  time.Duration

	shutdownOnce sync.Once
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger    *applog.Logger
	metrics   *Metrics
	rateLimit int
}

// WithLogger sets the base logger; request loggers derive from it.
func WithLogger(l *applog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics shares a metrics set instead of creating a fresh one.
func WithMetrics(m *Metrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// WithRateLimit sets how many mutating requests a client may make per minute.
func WithRateLimit(perMinute int) ServerOption {
	return func(o *serverOptions) { o.rateLimit = perMinute }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, expenses ExpenseAPI, opts ...ServerOption) *Server {
	o := serverOptions{rateLimit: 60}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = applog.New(applog.DefaultConfig())
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	mux := http.NewServeMux()

	s := &Server{
		expenses:    expenses,
		logger:      o.logger.WithComponent(applog.ComponentHTTP),
		metrics:     o.metrics,
		rateLimiter: newRateLimiter(o.rateLimit),
		readyCheck:  2 * time.Second,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	s.handle(mux, "GET /{$}", s.handleIndex)
	s.handle(mux, "GET /healthz", handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handle(mux, "GET /api/expenses", s.handleListExpenses)
	s.handle(mux, "POST /api/expenses", s.withRateLimit(s.handleCreateExpense))
	s.handle(mux, "DELETE /api/expenses/{description}", s.withRateLimit(s.handleDeleteExpense))
	s.handle(mux, "DELETE /api/expenses/id/{id}", s.withRateLimit(s.handleDeleteExpenseByID))
	s.handle(mux, "GET /api/stats", s.handleStats)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withRequestContext(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.instrument(pattern, h))
}

// Metrics returns the collectors this server reports to.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
