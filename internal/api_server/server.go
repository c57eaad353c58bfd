package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dcm-project/openstack-service-provider/internal/auth"
	"github.com/dcm-project/openstack-service-provider/internal/config"
	handlersv1 "github.com/dcm-project/openstack-service-provider/internal/handlers/v1"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	listener net.Listener
	handler  *handlersv1.Handler
}

func New(cfg *config.Config, listener net.Listener, handler *handlersv1.Handler) *Server {
	return &Server{
		cfg:      cfg,
		listener: listener,
		handler:  handler,
	}
}

func (s *Server) Run(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/", s.handler.Root)
	router.Get("/health", s.handler.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.APIKey(s.cfg.Auth.APIKey))
		s.handler.Register(r)
	})

	srv := http.Server{Handler: router}

	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
	}()

	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
