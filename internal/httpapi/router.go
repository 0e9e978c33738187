package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the client-facing chi router for g.
func NewRouter(g *Gateway) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/v1/models", g.handleListModels)
	r.Post("/v1/messages", g.handleMessages(false))
	r.Post("/cc/v1/messages", g.handleMessages(true))
	r.Post("/v1/messages/count_tokens", g.handleCountTokens)

	return r
}
