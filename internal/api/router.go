package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted. Subject writes
// are protected by the JWT middleware; reads and the auth endpoints are
// public. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *Service, secret string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Session lifecycle.
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/signout", h.SignOut)

	// Subject reads.
	r.Get("/subjects", h.ListSubjects)
	r.Get("/subject/{name}", h.GetSubject)

	// Subject writes.
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(secret))
		r.Put("/subject/{name}", h.UpdateSubject)
		r.Post("/subject/{name}", h.CreateSubject)
	})

	// SSE endpoint.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
