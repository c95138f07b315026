package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/httputil"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/user"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	service *Service
}

func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequireAuth resolves the access token to a user and stores it in the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		headerMalformed := false

		// Priority 1: Authorization header
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			} else {
				headerMalformed = true
			}
		}

		// Priority 2: Cookie (fallback)
		if token == "" {
			token, _ = GetAccessTokenFromCookie(r)
		}

		if token == "" && headerMalformed {
			httputil.RespondAppError(w, apperr.New(apperr.Unauthorized, "invalid authorization header format"))
			return
		}

		u, err := m.service.Authenticate(r.Context(), token)
		if err != nil {
			logging.FromContext(r.Context()).Debug("authentication failed", "error", err)
			httputil.RespondAppError(w, err)
			return
		}

		ctx := user.NewContext(r.Context(), u)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithFields(map[string]any{"user_id": u.ID}))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers that are not admins. It must run after RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := GetUserFromContext(r.Context())
		if err := m.service.RequireAdmin(u); err != nil {
			httputil.RespondAppError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext returns the user stored by RequireAuth
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	return user.FromContext(ctx)
}
