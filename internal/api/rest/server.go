package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// Server wraps the HTTP server lifecycle
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	port       string
	log        *logger.Logger
}

// NewServer creates a new HTTP server
func NewServer(router *gin.Engine, port string, log *logger.Logger) *Server {
	return &Server{
		router: router,
		port:   port,
		log:    log,
	}
}

// Start runs the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("Starting server on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Server is shutting down...")
	return s.httpServer.Shutdown(ctx)
}
