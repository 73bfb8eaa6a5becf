package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/taxscope/pkg/scheduler"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
)

const shutdownTimeout = 10 * time.Second

// Scheduler is the part of the refresh scheduler the server exposes.
type Scheduler interface {
	Status() scheduler.Status
	RunNow(ctx context.Context) error
}

type Options struct {
	Store     *snapshot.Store
	Scheduler Scheduler // optional
	StaticDir string    // optional; built-in index page when empty
	Username  string
	Password  string
	RateLimit float64 // requests per second per client on /api/, 0 disables
	RateBurst int
	// ShutdownTimeout bounds how long in-flight requests may run after
	// shutdown begins. Defaults to 10s.
	ShutdownTimeout time.Duration
	Log             logrus.FieldLogger
}

type Server struct {
	Store     *snapshot.Store
	Scheduler Scheduler
	StaticDir string
	Username  string
	Password  string

	log             logrus.FieldLogger
	limiter         *rateLimiter
	shutdownTimeout time.Duration
}

func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		Store:     opts.Store,
		Scheduler: opts.Scheduler,
		StaticDir: opts.StaticDir,
		Username:  opts.Username,
		Password:  opts.Password,
		log:       log,

		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = shutdownTimeout
	}
	if opts.RateLimit > 0 {
		s.limiter = newRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// Handler returns the full routing tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API Group
	mux.Handle("GET /api/v1/tax-data", s.api(s.handleTaxData))
	mux.Handle("GET /api/v1/status", s.api(s.handleStatus))
	mux.Handle("GET /api/v1/burden", s.api(s.handleBurden))
	mux.Handle("GET /api/v1/metrics", s.api(s.handleMetrics))
	mux.Handle("POST /api/v1/refresh", s.api(s.handleRefresh))

	// The dashboard fetches the snapshot from this historical path
	mux.Handle("GET /tax-data.json", s.basicAuth(http.HandlerFunc(s.handleTaxData)))
	mux.Handle("GET /status", s.basicAuth(http.HandlerFunc(s.handleStatusPage)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Static Files
	if s.StaticDir != "" {
		mux.Handle("/", s.basicAuth(http.FileServer(http.Dir(s.StaticDir))))
	} else {
		mux.Handle("GET /{$}", s.basicAuth(http.HandlerFunc(s.handleIndexPage)))
	}

	return requestIDMiddleware(accessLogMiddleware(s.log, recoveryMiddleware(s.log, mux)))
}

// Start serves until ctx is done, then shuts down gracefully. A bind failure
// is returned immediately.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Starting server on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// requests still running past the deadline are cut off, the shutdown itself is clean
		s.log.Warnf("Graceful shutdown incomplete after %s, closing remaining connections: %v", s.shutdownTimeout, err)
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) api(h http.HandlerFunc) http.Handler {
	var next http.Handler = h
	if s.limiter != nil {
		next = s.limiter.middleware(next)
	}
	return s.basicAuth(next)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
