package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/biabot/internal/auth"
	"github.com/ashureev/biabot/internal/middleware"
)

// RegisterRoutes registers every route under /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.With(middleware.RateLimit(h.authLimiter, "auth")).Post("/auth/client-code", h.AuthenticateClient)

		r.Post("/chat/message", h.ChatMessage)
		r.Get("/chat/ws", h.socket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.issuer))
			r.Get("/client/profile", h.ClientProfile)
			r.Get("/intake/options", h.IntakeOptions)
			r.Post("/intake/normalize-answer", h.NormalizeAnswer)
			r.Post("/intake/preview", h.Preview)
			r.Post("/intake/submit", h.Submit)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RateLimit(h.authLimiter, "admin-auth")).Post("/auth", h.AdminAuth)

			r.Group(func(r chi.Router) {
				r.Use(auth.AdminMiddleware(h.adminSecret))
				r.Get("/client-profiles", h.ListProfiles)
				r.Post("/client-profiles", h.UpsertProfile)
				r.Get("/client-profiles/{code}", h.GetProfile)
				r.Put("/client-profiles/{code}", h.UpdateProfile)
				r.Delete("/client-profiles/{code}", h.DeleteProfile)
				r.Get("/service-options", h.GetServiceOptions)
				r.Put("/service-options", h.SetServiceOptions)
				r.Get("/request-logs", h.RequestLogs)
				r.Post("/monday/verify", h.VerifyMonday)
			})
		})
	})
}
