package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/actionsum/sac/internal/config"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, handler *Handler, customPort int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("url", "http://"+s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
