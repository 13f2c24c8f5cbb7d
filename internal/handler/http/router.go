package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MichaelKMarwa/recupio/pkg/health"
	"github.com/MichaelKMarwa/recupio/pkg/middleware"
)

const directoryCacheAge = 5 * time.Minute

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth     *AuthHandler
	Facility *FacilityHandler
	Catalog  *CatalogHandler
	DropOff  *DropOffHandler
	Billing  *BillingHandler
}

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig

	// AuthRateLimitRPS and AuthRateLimitBurst bound /auth/* per client IP.
	// A zero rate disables the limiter.
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	// Registerer receives the HTTP collectors; Gatherer backs /metrics.
	// Both may be nil to run without metrics.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter creates a chi router with every route registered. ctx bounds
// background work started by middlewares such as the rate limiter.
func NewRouter(ctx context.Context, h Handlers, authz *Authorizer, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	if cfg.Registerer != nil {
		r.Use(middleware.NewHTTPMetrics(cfg.Registerer, cfg.ServiceName).Middleware)
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	user := authz.RequireUser
	guest := authz.RequireGuest
	userOrGuest := authz.RequireUserOrGuest
	premium := authz.RequirePremium

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.ContentTypeJSON)
		if cfg.AuthRateLimitRPS > 0 {
			r.Use(middleware.RateLimit(ctx, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))
		}

		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/guest-session", h.Auth.CreateGuestSession)
		r.Get("/validate-guest-session", h.Auth.ValidateGuestSession)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)

		r.With(user).Get("/verify-session", withIdentity(h.Auth.VerifySession))
		r.With(user).Post("/logout", withIdentity(h.Auth.Logout))

		r.With(guest).Get("/guest/preferences", withIdentity(h.Auth.GetGuestPreferences))
		r.With(guest).Post("/guest/preferences", withIdentity(h.Auth.SaveGuestPreferences))
	})

	r.With(middleware.NoStore).Get("/guest-sessions/{id}", h.Auth.GetGuestSession)

	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.ContentTypeJSON)
		r.Use(user)

		r.Put("/upgrade", withIdentity(h.Auth.Upgrade))
		r.Get("/preferences", withIdentity(h.Auth.GetPreferences))
		r.Put("/preferences", withIdentity(h.Auth.SavePreferences))
	})

	// Public directory data
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(directoryCacheAge))

		// Older clients call the directory without the /api prefix.
		for _, prefix := range []string{"/api/facilities", "/facilities"} {
			r.Get(prefix, h.Facility.List)
			r.Get(prefix+"/search", h.Facility.Search)
			r.Get(prefix+"/best-match", h.Facility.BestMatch)
			r.Get(prefix+"/{id}", h.Facility.Get)
		}

		r.Get("/items", h.Catalog.ListItems)
		r.Get("/items/categories", h.Catalog.ListCategories)
		r.Get("/items/categories/{id}", h.Catalog.GetCategory)
		r.Get("/categories/popular", h.Catalog.PopularCategories)
		r.Get("/categories/{id}/items", h.Catalog.GetCategory)
		r.Get("/categories/{id}/stats", h.Catalog.CategoryStats)

		r.Get("/api/impact/community", h.Catalog.CommunityImpact)
		r.Get("/api/premium/features", h.Billing.ListFeatures)
	})

	// Per-caller data
	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.ContentTypeJSON)

		r.With(userOrGuest).Post("/api/drop-offs", withIdentity(h.DropOff.Create))
		r.With(userOrGuest).Get("/api/drop-offs/{id}", withIdentity(h.DropOff.Get))
		r.With(user).Get("/api/drop-offs/user/{userId}", withIdentity(h.DropOff.ListForUser))
		r.With(user).Get("/api/dropoffs/recent", withIdentity(h.DropOff.Recent))
		r.With(user, premium).Get("/api/dropoffs/export", withIdentity(h.DropOff.Export))

		r.With(user).Post("/api/tax-receipts/generate/{dropOffId}", withIdentity(h.DropOff.GenerateReceipt))
		r.With(user).Get("/api/tax-receipts/user/{userId}", withIdentity(h.DropOff.ListReceipts))

		r.With(user).Get("/api/impact/user/{userId}", withIdentity(h.Catalog.UserImpact))

		r.With(user).Post("/payments", withIdentity(h.Billing.CreatePayment))
		r.With(user).Get("/payments", withIdentity(h.Billing.ListPayments))

		r.Route("/api/payments", func(r chi.Router) {
			r.Use(user)

			r.Get("/methods", withIdentity(h.Billing.ListMethods))
			r.Post("/methods", withIdentity(h.Billing.AddMethod))
			r.Delete("/methods/{id}", withIdentity(h.Billing.RemoveMethod))

			r.Get("/invoices", withIdentity(h.Billing.ListInvoices))
			r.Get("/invoices/{id}/pdf", withIdentity(h.Billing.InvoicePDF))
			r.Post("/invoices/{id}/send", withIdentity(h.Billing.SendInvoice))
		})

		r.Route("/api/premium", func(r chi.Router) {
			r.Use(user)

			r.Post("/subscribe", withIdentity(h.Billing.Subscribe))
			r.Put("/cancel", withIdentity(h.Billing.CancelSubscription))
			r.Get("/subscription", withIdentity(h.Billing.GetSubscription))
			r.Post("/deactivate", withIdentity(h.Billing.DeactivateFeature))

			r.With(premium).Post("/activate", withIdentity(h.Billing.ActivateFeature))
			r.With(premium).Get("/features/active", withIdentity(h.Billing.ActiveFeatures))
		})
	})

	return r
}
