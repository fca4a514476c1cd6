package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taskpulse-api/internal/config"
	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/transport/http/handler"
	appmiddleware "github.com/taskpulse-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger)
	r.Use(appmiddleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)
	requireAdmin := appmiddleware.RequireCapability(domain.ActionManageUsers)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	svcs := newServices(cfg, deps)
	healthH := handler.NewHealthHandler(healthChecks(deps))
	authH := handler.NewAuthHandler(svcs.sessions, svcs.users, svcs.codes, cfg.ExposeOTPCodes())
	userH := handler.NewUserHandler(svcs.users)
	reportH := handler.NewReportHandler(svcs.reports)

	r.Get("/health-check", healthH.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(sensitiveRL.Limit)
				r.Post("/register", authH.Register)
				r.Post("/login", authH.Login)
				r.Post("/google", authH.Google)
				r.Post("/send-otp", authH.SendOTP)
				r.Post("/verify-otp", authH.VerifyOTP)
				r.Post("/forgot-password", authH.ForgotPassword)
				r.Post("/reset-password", authH.ResetPassword)
			})
			r.Post("/refresh", authH.Refresh)
			r.With(authMw).Post("/logout", authH.Logout)
			r.With(authMw).Get("/me", authH.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMw)
			r.Put("/me", userH.UpdateProfile)
			r.Put("/me/password", userH.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", userH.List)
				r.Get("/{id}", userH.Get)
				r.Patch("/{id}", userH.AdminUpdate)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(authMw)
			r.Post("/", reportH.Create)
			r.Get("/", reportH.List)
			r.Get("/today", reportH.Today)
			r.With(appmiddleware.RequireCapability(domain.ActionViewStats)).Get("/stats", reportH.Stats)
			r.With(appmiddleware.RequireCapability(domain.ActionExportReports)).Get("/export", reportH.Export)
			r.Get("/{id}", reportH.Get)
			r.Put("/{id}", reportH.Update)
			r.Delete("/{id}", reportH.Delete)
			r.With(appmiddleware.RequireCapability(domain.ActionForceDelete)).Delete("/{id}/force", reportH.ForceDelete)
		})
	})

	return r
}
