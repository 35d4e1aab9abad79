package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"redirect-manager/internal/config"
	"redirect-manager/internal/handler"
	"redirect-manager/internal/middleware"
	"redirect-manager/internal/model"
)

// New assembles the two surfaces of the server: the management API under
// /api/v1, and the public resolution catch-all that answers every other
// path with a redirect or the proxied origin. The catch-all sits outside
// CORS, rate limiting and request timeouts; proxied responses may stream
// for longer than any management request is allowed to.
func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	apiTokenHandler *handler.APITokenHandler,
	redirectHandler *handler.RedirectHandler,
	resolveHandler *handler.ResolveHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.CORS(cfg.CORSOrigins))
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.Post("/refresh", authHandler.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		// Account and credential management is session-only; API tokens
		// cannot reach it regardless of scope.
		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth, authMiddleware.RequireSession)

			users.With(authMiddleware.RequireRoles(model.RoleAdmin)).Post("/", userHandler.Create)
			users.With(authMiddleware.RequireRoles(model.RoleAdmin)).Get("/", userHandler.List)
			users.With(authMiddleware.RequireRoles(model.RoleAdmin)).Get("/{id}", userHandler.Get)
			users.With(authMiddleware.RequireRoles(model.RoleAdmin)).Patch("/{id}/role", userHandler.UpdateRole)
			users.With(authMiddleware.RequireRoles(model.RoleAdmin)).Delete("/{id}", userHandler.Delete)
			users.Patch("/password", userHandler.ChangePassword)
		})

		api.Route("/api-tokens", func(tokens chi.Router) {
			tokens.Use(authMiddleware.RequireAuth, authMiddleware.RequireSession)

			tokens.Post("/", apiTokenHandler.Create)
			tokens.Get("/", apiTokenHandler.List)
			tokens.Delete("/{id}", apiTokenHandler.Revoke)
		})

		api.Route("/redirects", func(redirects chi.Router) {
			redirects.Use(authMiddleware.RequireAuth, authMiddleware.RequireScope)

			redirects.Get("/", redirectHandler.List)
			redirects.Post("/", redirectHandler.Create)
			redirects.Post("/batch", redirectHandler.BatchCreate)
			redirects.Patch("/batch", redirectHandler.BatchUpdate)
			redirects.Delete("/batch", redirectHandler.BatchDelete)
			redirects.Get("/{id}", redirectHandler.Get)
			redirects.Put("/{id}", redirectHandler.Update)
			redirects.Patch("/{id}", redirectHandler.PartialUpdate)
			redirects.Delete("/{id}", redirectHandler.Delete)
		})
	})

	r.Handle("/*", resolveHandler)

	return r
}
