package routes

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/handlers"
	"github.com/AnshRaj112/macrolog-backend/internal/middleware"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Profile  *handlers.ProfileHandler
	Ledger   *handlers.LedgerHandler
	Foods    *handlers.FoodHandler
	Realtime *handlers.LedgerSocketHandler
}

func SetupRoutes(r chi.Router, h Handlers, sessions middleware.SessionValidator, logger *zap.Logger) {
	// Public auth routes
	r.Post("/api/auth/signup", h.Auth.Signup)
	r.Post("/api/auth/signin", h.Auth.Signin)
	r.Post("/api/auth/signout", h.Auth.Signout)
	r.Post("/api/auth/check-username", h.Auth.CheckUsername)

	// Stateless target preview
	r.Post("/api/targets/calculate", h.Profile.Calculate)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(sessions, logger))

		pr.Get("/api/profile", h.Profile.Get)
		pr.Get("/api/profile/targets", h.Profile.GetTargets)
		pr.Get("/api/ledger", h.Ledger.Get)
		pr.Get("/api/ledger/range", h.Ledger.Range)
		pr.Get("/api/foods", h.Foods.List)

		// WebSocket endpoint for realtime ledger totals
		pr.Get("/ws/ledger", h.Realtime.Serve)

		pr.Group(func(wr chi.Router) {
			wr.Use(middleware.LedgerWriteRateLimit)

			wr.Post("/api/profile/onboarding", h.Profile.Onboarding)
			wr.Put("/api/profile/targets", h.Profile.SetTargets)
			wr.Post("/api/ledger/add", h.Ledger.Add)
			wr.Post("/api/ledger/subtract", h.Ledger.Subtract)
			wr.Post("/api/foods", h.Foods.Log)
			wr.Put("/api/foods/{id}", h.Foods.Update)
			wr.Delete("/api/foods/{id}", h.Foods.Delete)
		})
	})
}
