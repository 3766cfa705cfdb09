// Package httpapi exposes the agent over HTTP: chat, memory management and
// health endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/service/agent"
	"github.com/sandevgo/nimbus/internal/service/memory"
	"github.com/sandevgo/nimbus/pkg/log"
)

type Server struct {
	cfg    *config.AppConfig
	agent  *agent.Orchestrator
	memory *memory.Service
	srv    *http.Server
}

func NewServer(cfg *config.AppConfig, orchestrator *agent.Orchestrator, mem *memory.Service) *Server {
	s := &Server{
		cfg:    cfg,
		agent:  orchestrator,
		memory: mem,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat", s.handleChatLegacy)
	mux.HandleFunc("GET /personas", s.handlePersonas)
	mux.HandleFunc("DELETE /memory/{user_id}", s.handleClearMemory)

	s.srv = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.withRequestTimeout(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("http server listening")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// withRequestTimeout bounds each request by the configured deadline so a
// stuck upstream cannot hold the connection open indefinitely.
func (s *Server) withRequestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
