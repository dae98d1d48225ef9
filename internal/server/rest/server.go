// Package rest is the HTTP boundary of the user service: routing, the
// authentication middleware, request logging and the JSON handlers.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/userservice/internal/logging"
	"github.com/dmitrijs2005/userservice/internal/server/config"
	"github.com/dmitrijs2005/userservice/internal/server/metrics"
	"github.com/dmitrijs2005/userservice/internal/server/models"
	"github.com/dmitrijs2005/userservice/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// UserService is the account API the handlers depend on.
type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Subscribe(ctx context.Context, token string) (string, error)
}

// TokenService validates and revokes bearer tokens.
type TokenService interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
	Revoke(ctx context.Context, token string) (bool, error)
}

type Server struct {
	address           string
	users             UserService
	tokens            TokenService
	metrics           *metrics.Metrics
	logger            logging.Logger
	legacyStatusCodes bool
	publicPaths       []string
	router            *mux.Router
}

type Option func(*Server)

// WithLegacyStatusCodes answers every envelope with HTTP 200.
func WithLegacyStatusCodes(on bool) Option {
	return func(s *Server) { s.legacyStatusCodes = on }
}

// WithPublicPaths replaces the set of paths that skip authentication.
func WithPublicPaths(paths []string) Option {
	return func(s *Server) { s.publicPaths = append([]string(nil), paths...) }
}

func NewServer(address string, l logging.Logger, us UserService, ts TokenService, mt *metrics.Metrics, opts ...Option) *Server {
	s := &Server{
		address:     address,
		users:       us,
		tokens:      ts,
		metrics:     mt,
		logger:      l.With("module", "http_server"),
		publicPaths: config.DefaultPublicPaths,
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.authenticate)

	u := r.PathPrefix("/v1/user").Subrouter()
	u.HandleFunc("/register", s.Register()).Methods(http.MethodPost)
	u.HandleFunc("/login", s.Login()).Methods(http.MethodPost)
	u.HandleFunc("/authenticate", s.Authenticate()).Methods(http.MethodPost)
	u.HandleFunc("/subscribe", s.Subscribe()).Methods(http.MethodPost)
	u.HandleFunc("/logout", s.Logout()).Methods(http.MethodPost)
	u.HandleFunc("/me", s.Me()).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.Health()).Methods(http.MethodGet)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
