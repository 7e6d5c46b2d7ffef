// Package portal serves the configuration REST surface used while the device
// is in config mode. It runs until a client asks for a reboot.
package portal

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/server/middleware"
	"git.home.luguber.info/inful/inkframe/internal/settings"
)

const (
	maxBodyBytes    = 16 * 1024
	shutdownTimeout = 5 * time.Second
	// rebootGrace lets the reboot response reach the client before the
	// listener closes.
	rebootGrace = time.Second
)

// SettingsStore is the settings surface the portal edits.
type SettingsStore interface {
	Get() settings.Schedule
	Update(func(*settings.Schedule)) error
	ResetToDefaults() error
}

// Options configure a Server.
type Options struct {
	Listen    string
	Store     SettingsStore
	DeviceMAC string
	Version   string
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the config portal.
type Server struct {
	opts    Options
	logger  *slog.Logger
	adapter *ferrors.HTTPErrorAdapter
	handler http.Handler

	rebootOnce sync.Once
	reboot     chan struct{}
	grace      time.Duration
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		logger:  logger,
		adapter: ferrors.NewHTTPErrorAdapter(logger),
		reboot:  make(chan struct{}),
		grace:   rebootGrace,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /save", s.handleSave)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /reboot", s.handleReboot)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", s.handleNotFound)
	s.handler = middleware.Chain(logger, s.adapter)(mux)
	return s
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

// RebootRequested is closed once a client has asked for a reboot.
func (s *Server) RebootRequested() <-chan struct{} { return s.reboot }

// Run listens on the configured address until a reboot is requested or ctx
// ends. A requested reboot returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "portal listen failed").
			WithContext("listen", s.opts.Listen).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("Config portal listening", slog.String("addr", ln.Addr().String()))

	var result error
	select {
	case <-s.reboot:
		s.logger.Info("Reboot requested from config portal")
		select {
		case <-time.After(s.grace):
		case <-ctx.Done():
		}
	case <-ctx.Done():
		result = ctx.Err()
	case err := <-errCh:
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "portal server stopped").Build()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("Portal shutdown incomplete", slog.String("error", err.Error()))
	}
	return result
}

func (s *Server) requestReboot() {
	s.rebootOnce.Do(func() { close(s.reboot) })
}
