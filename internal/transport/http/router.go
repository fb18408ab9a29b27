package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marketplace-auth/internal/application/account"
	"github.com/marketplace-auth/internal/application/auth"
	"github.com/marketplace-auth/internal/application/otp"
	"github.com/marketplace-auth/internal/application/session"
	"github.com/marketplace-auth/internal/config"
	"github.com/marketplace-auth/internal/domain"
	"github.com/marketplace-auth/internal/transport/http/handler"
	appmiddleware "github.com/marketplace-auth/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the auth service router. The returned limiter
// must be run by the caller so idle client entries are reclaimed.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, *appmiddleware.RateLimiter) {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, for the sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accounts := account.NewDirectory(deps.Users, deps.Sellers)
	otpSvc := otp.NewService(otp.ServiceDeps{Store: deps.State, Mailer: deps.Mailer})
	authSvc := auth.NewService(auth.ServiceDeps{Accounts: accounts, OTP: otpSvc})
	sessionSvc := session.NewService(session.ServiceDeps{Accounts: accounts, JWTProvider: deps.JWTProvider})

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, cfg.Cookie)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)

	authMw := appmiddleware.Auth(sessionSvc)

	r.Get("/", healthH.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Health)

		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/user-registration", regH.RegisterUser)
			r.Post("/verify-user", regH.VerifyUser)
			r.Post("/user-login", sessionH.LoginUser)
			r.Post("/forgot-user-password", pwH.ForgotUser)
			r.Post("/reset-user-password", pwH.ResetUser)
			r.Post("/forgot-password-otp-verification", pwH.VerifyOTP)

			r.Post("/seller-registration", regH.RegisterSeller)
			r.Post("/verify-seller", regH.VerifySeller)
			r.Post("/login-seller", sessionH.LoginSeller)
			r.Post("/forgot-seller-password", pwH.ForgotSeller)
			r.Post("/reset-seller-password", pwH.ResetSeller)
		})

		r.Post("/refresh-token", sessionH.RefreshUser)
		r.Post("/seller-refresh-token", sessionH.RefreshSeller)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(appmiddleware.RequireRole(domain.RoleUser)).Get("/logged-in-user", sessionH.Current)
			r.With(appmiddleware.RequireRole(domain.RoleSeller)).Get("/logged-in-seller", sessionH.Current)
		})
	})

	return r, sensitiveRL
}
