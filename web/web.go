// Package web exposes the user directory over HTTP.
package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gosom/user-directory/users"
)

// UserService is the minimal interface the handlers need.
type UserService interface {
	List(ctx context.Context) ([]users.User, error)
	Get(ctx context.Context, id string) (users.User, error)
	Create(ctx context.Context, in users.CreateUserInput) (users.User, error)
	Update(ctx context.Context, id string, in users.UpdateUserInput) (users.User, error)
	Delete(ctx context.Context, id string) (users.DeletedUser, error)
}

// StatusChecker reports whether the backing store is reachable.
type StatusChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	svc    UserService
	store  StatusChecker
	logger *log.Logger
	srv    *http.Server
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithStatusChecker(store StatusChecker) Option {
	return func(s *Server) {
		s.store = store
	}
}

func New(svc UserService, addr string, opts ...Option) *Server {
	ans := Server{
		svc: svc,
	}

	for _, opt := range opts {
		opt(&ans)
	}

	ans.srv = &http.Server{
		Addr:              addr,
		Handler:           Chain(ans.router(), CORS, SecurityHeaders),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &ans
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.updateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", s.deleteUser).Methods(http.MethodDelete)

	return r
}

// Handler returns the fully assembled http handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
