package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/auth"
	"github.com/redmonkez12/account-api/internal/config"
	"github.com/redmonkez12/account-api/internal/httputil"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/user"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups everything the router mounts
type Handlers struct {
	Auth           *auth.Handler
	AuthMiddleware *auth.Middleware
	User           *user.Handler
	DB             Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment())) // Security headers on all responses
	r.Use(middleware.Recoverer)                          // Recover from panics
	r.Use(middleware.RequestID)                          // Add request ID
	r.Use(middleware.RealIP)                             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger))                 // Structured logging with request context

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondAppError(w, apperr.New(apperr.NotFound, "route not found"))
	})

	r.Get("/health", handleHealth(h.DB))

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh-token", h.Auth.Refresh)
			r.Post("/oauth/google", h.Auth.GoogleLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware.RequireAuth)
				r.Post("/logout", h.Auth.Logout)
				r.Post("/change-password", h.Auth.ChangePassword)
				r.Post("/register-admin/{userID}", h.Auth.PromoteToAdmin)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.AuthMiddleware.RequireAuth)
			r.Get("/current", h.User.Current)
			r.Patch("/account", h.User.UpdateAccount)
			r.Patch("/avatar", h.User.UpdateAvatar)
			r.Put("/profile/visibility", h.User.SetVisibility)
			r.Get("/profile/{userID}", h.User.GetProfile)
			r.With(h.AuthMiddleware.RequireAdmin).Get("/profiles", h.User.ListProfiles)
		})
	})

	return r
}

// handleHealth reports liveness and database reachability
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      503 {object} map[string]string
// @Router       /health [get]
func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				logging.FromContext(r.Context()).Error("health check failed", "error", err)
				httputil.RespondJSON(w, map[string]string{"status": "database unavailable"}, http.StatusServiceUnavailable)
				return
			}
		}
		httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
	}
}
