// Package http serves the history page, its HTMX partials and the JSON API
// the terminal client talks to.
package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"centsible/internal/auth"
	"centsible/internal/cache"
	"centsible/internal/core"
	"centsible/internal/history"
	"centsible/internal/ledger"
	applog "centsible/internal/log"
	"centsible/internal/middleware/ratelimit"
	"centsible/internal/middleware/security"
	"centsible/internal/middleware/trace"
	appweb "centsible/web"
)

// TransactionCreator stores a new transaction and returns its reference.
type TransactionCreator interface {
	Create(ctx context.Context, tx core.Transaction) (string, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server is built from. History, Periods,
// Transactions and Sessions are required.
type Deps struct {
	History      ledger.HistoryReader
	Periods      ledger.PeriodLister
	Transactions TransactionCreator
	Sessions     *auth.SessionStore
	Credentials  auth.Credentials

	// Ready is checked by /readyz when set.
	Ready Pinger
	// Cleaners are swept every CleanupInterval together with the sessions.
	Cleaners        []cache.Cleaner
	CleanupInterval time.Duration

	Locale        string
	SecureCookies bool
	RateLimit     ratelimit.Config
	Logger        *applog.Logger
	Now           func() time.Time
}

type Server struct {
	http.Server

	templates     *template.Template
	history       ledger.HistoryReader
	periods       ledger.PeriodLister
	transactions  TransactionCreator
	sessions      *auth.SessionStore
	credentials   auth.Credentials
	ready         Pinger
	labeler       history.Labeler
	formatter     history.Formatter
	secureCookies bool
	logger        *applog.Logger
	now           func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	cleaner  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.History == nil || d.Periods == nil || d.Transactions == nil || d.Sessions == nil {
		return nil, errors.New("http server: history, periods, transactions and sessions are required")
	}
	if d.Logger == nil {
		d.Logger = applog.FromSlog(nil, applog.ComponentHTTP)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.CleanupInterval <= 0 {
		d.CleanupInterval = 10 * time.Minute
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:     t,
		history:       d.History,
		periods:       d.Periods,
		transactions:  d.Transactions,
		sessions:      d.Sessions,
		credentials:   d.Credentials,
		ready:         d.Ready,
		labeler:       history.NewLabeler(d.Locale),
		formatter:     history.NumberFormatterFor(d.Locale),
		secureCookies: d.SecureCookies,
		logger:        d.Logger,
		now:           d.Now,
		limiter:       ratelimit.NewLimiter(d.RateLimit),
		detector:      security.NewDetector(),
		tracer:        trace.NewMiddleware(),
		cleaner:       cache.NewManager(),
	}

	s.cleaner.Register(s.sessions)
	for _, c := range d.Cleaners {
		s.cleaner.Register(c)
	}
	s.cleaner.StartCleanup(d.CleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/signin", s.handleSignInPage)
	mux.HandleFunc(history.SignInAPI, s.handleSignIn)
	mux.HandleFunc(history.SignOutAPI, s.handleSignOut)

	mux.HandleFunc("/history", s.requireSession(s.handleHistoryPage))
	mux.HandleFunc("/ui/history", s.requireSession(s.handleHistoryPartial))
	mux.HandleFunc(history.HistoryPath, s.requireSession(s.handleHistoryAPI))
	mux.HandleFunc(history.PeriodsPath, s.requireSession(s.handlePeriods))
	mux.HandleFunc(ChartPNGPath, s.requireSession(s.handleChartPNG))
	mux.HandleFunc(TransactionsPath, s.requireSession(s.handleCreateTransaction))
	return mux
}

// middleware wraps h, outermost first: request id, request logger, access
// log, scanner rejection, security headers, POST rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = applog.AccessLog(s.detector.ExtractClientIP)(h)
	h = applog.Middleware(s.logger, trace.FromRequest)(h)
	return s.tracer.Middleware(h)
}

// Shutdown stops background cleanup and the rate limiter, then drains the
// HTTP server. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cleaner.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
