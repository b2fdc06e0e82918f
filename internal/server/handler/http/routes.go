// Package http provides HTTP routing and middleware configuration
// for the DocChat auth server.
package http

import (
	"net/http"

	"github.com/atinyakov/docchat/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the auth API.
//
// Routes:
//
//	POST /register   → authHandler.Register
//	POST /login      → authHandler.Login
//	GET  /me         → authHandler.Me (protected by BearerAuth)
//
// Middleware chain (applied in order):
//  1. Recoverer                          turns panics into 500s
//  2. AllowContentType("application/json") rejects non-JSON bodies
//  3. WithRequestLogging(logger)         logs incoming requests
func NewRouter(
	authHandler *AuthHandler,
	tokens middleware.TokenParser,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens))
		r.Get("/me", authHandler.Me)
	})

	return r
}
