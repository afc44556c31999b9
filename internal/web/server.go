// Package web exposes the application over a JSON HTTP API.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmorioka/sharefood/internal/auth"
	"github.com/tmorioka/sharefood/internal/item"
	"github.com/tmorioka/sharefood/internal/session"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	ItemService *item.Service
	Sessions    *session.Issuer
}

type Server struct {
	deps    *ServerDeps
	handler http.Handler
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps: deps,
	}

	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		// Account endpoints.
		r.Post("/register", s.handleRegister)
		r.Get("/verify-email", s.handleVerifyEmail)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccessToken)
			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
		})

		// Item endpoints. Reads are public, mutations require a login.
		r.Get("/items", s.handleListItems)
		r.Get("/items/{id}", s.handleGetItem)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccessToken)
			r.Post("/items", s.handleCreateItem)
			r.Put("/items/{id}", s.handleUpdateItem)
			r.Patch("/items/{id}", s.handleUpdateItem)
			r.Delete("/items/{id}", s.handleDeleteItem)
		})
	})

	s.handler = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
