// Package server exposes the chat pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/clawcoach/clawcoach/internal/chat"
	"github.com/clawcoach/clawcoach/internal/payment"
	"github.com/clawcoach/clawcoach/internal/repository"
)

// walletHeader identifies the caller for quota enforcement.
const walletHeader = "X-Wallet-Address"

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	svc       *chat.Service
	store     *repository.Store
	validator payment.Validator
	paidPath  string
}

// New wires a Server.
func New(svc *chat.Service, store *repository.Store, validator payment.Validator) *Server {
	return &Server{
		svc:       svc,
		store:     store,
		validator: validator,
		paidPath:  "/api/chat/paid",
	}
}

// Router builds the chi route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/chat/extract", s.handleExtract)
		r.With(payment.Middleware(s.validator)).Post("/chat/paid", s.handlePaidChat)
		r.Get("/messages", s.handleListMessages)
		r.Post("/messages", s.handleSaveMessages)
		r.Post("/users", s.handleSyncUser)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestTimeout(r, 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
