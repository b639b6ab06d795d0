// Package httpapi exposes the alert registry over HTTP/JSON.
//
// Routes:
//
//	GET  /               service title and version
//	POST /auth/register  create an account
//	POST /auth/login     exchange HTTP Basic credentials for a token
//	GET  /alerts         list alerts (bearer token)
//	GET  /alert/{id}     one alert (bearer token)
//	POST /alert          submit an alert (bearer token)
//	GET  /metrics        Prometheus exposition
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/logging"
	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
	"github.com/dmitrijs2005/alertkeeper/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is the authentication surface the handlers depend on.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(header string) (string, error)
}

// AlertService is the alert surface the handlers depend on.
type AlertService interface {
	Create(ctx context.Context, alert *models.Alert) (int64, error)
	Get(ctx context.Context, id int64) (*models.Alert, error)
	List(ctx context.Context, q services.ListQuery) ([]*models.Alert, error)
}

// Options tunes the HTTP server. Zero values fall back to defaults.
type Options struct {
	Title           string
	Version         string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	address string
	users   UserService
	alerts  AlertService
	logger  logging.Logger
	opts    Options
	router  *mux.Router
}

func NewServer(address string, l logging.Logger, us UserService, as AlertService, opts Options) *Server {
	if opts.Title == "" {
		opts.Title = "alertkeeper"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		address: address,
		users:   us,
		alerts:  as,
		logger:  l.With("module", "http_server"),
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, kindNotFound, "resource not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, kindValidation, "method not allowed")
	})

	router.HandleFunc("/", s.home).Methods(http.MethodGet)
	router.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	protected := router.NewRoute().Subrouter()
	protected.Use(s.requireToken)
	protected.HandleFunc("/alerts", s.listAlerts).Methods(http.MethodGet)
	protected.HandleFunc("/alert/{id:[0-9]+}", s.getAlert).Methods(http.MethodGet)
	protected.HandleFunc("/alert", s.createAlert).Methods(http.MethodPost)

	router.Use(s.recoverPanics, s.requestID, s.instrument, s.logRequests, s.timeout)
	return router
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
