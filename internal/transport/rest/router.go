package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/identity-service/internal/auth"
	datamodel "github.com/frahmantamala/identity-service/internal/core/datamodel/principal"
	"github.com/frahmantamala/identity-service/internal/otp"
	"github.com/frahmantamala/identity-service/internal/transport/middleware"
	"github.com/frahmantamala/identity-service/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, otpHandler *otp.Handler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.readiness)
		r.Get("/ping", healthHandler.ping)

		r.Route("/users", func(ur chi.Router) {
			ur.Post("/register", authHandler.RegisterUser)
			ur.Post("/login", authHandler.Login(datamodel.KindUser))
			ur.Post("/logout", authHandler.Logout)

			ur.Put("/send-otp", otpHandler.SendOTP(otp.ScopeUser))
			ur.Post("/verify-otp", otpHandler.VerifyOTP(otp.ScopeUser))
			ur.Put("/reset-password", otpHandler.ResetPassword)

			ur.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Get("/me", authHandler.Me)
				pr.Put("/change-password", authHandler.ChangePassword)

				// Listing the user base is an operator concern; operators
				// need the Users capability, root operators pass unchecked.
				pr.Group(func(lr chi.Router) {
					lr.Use(middleware.RequireRoles(datamodel.RoleAdmin, datamodel.RoleSuperAdmin))
					lr.Use(middleware.RequirePermissions(datamodel.CapabilityUsers))
					lr.Get("/", authHandler.ListUsers)
				})
			})
		})

		r.Route("/admins", func(ar chi.Router) {
			ar.Post("/login", authHandler.Login(datamodel.KindOperator))
			ar.Post("/logout", authHandler.Logout)

			ar.Put("/send-otp", otpHandler.SendOTP(otp.ScopeAdmin))
			ar.Post("/verify-otp", otpHandler.VerifyOTP(otp.ScopeAdmin))
			ar.Put("/reset-password", otpHandler.ResetPassword)

			ar.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Get("/me", authHandler.Me)
				pr.Put("/change-password", authHandler.ChangePassword)

				// Operator management, root operators only.
				pr.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireRoles(datamodel.RoleSuperAdmin))
					mr.Post("/register", authHandler.RegisterOperator)
					mr.Get("/", authHandler.ListOperators)
					mr.Patch("/{id}/active", authHandler.SetOperatorActive)
					mr.Put("/{id}/permissions", authHandler.SetOperatorPermissions)
				})
			})
		})

		r.Route("/superadmins", func(sr chi.Router) {
			sr.Post("/register", authHandler.RegisterRootOperator)
			sr.Post("/login", authHandler.Login(datamodel.KindRootOperator))
			sr.Post("/logout", authHandler.Logout)

			sr.Put("/send-otp", otpHandler.SendOTP(otp.ScopeAdmin))
			sr.Post("/verify-otp", otpHandler.VerifyOTP(otp.ScopeAdmin))
			sr.Put("/reset-password", otpHandler.ResetPassword)

			sr.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)
				pr.Get("/me", authHandler.Me)
				pr.Put("/change-password", authHandler.ChangePassword)
			})
		})
	})
}
