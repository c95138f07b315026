package auth

import (
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/httputil"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/media"
	"github.com/redmonkez12/account-api/internal/ratelimit"
)

var (
	errInvalidBody  = apperr.New(apperr.Validation, "invalid request body")
	errTooManyTries = apperr.New(apperr.TooManyRequests, "too many requests, please try again later")
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	images          media.Store
	rateLimiter     *ratelimit.Limiter
	accessDuration  time.Duration
	refreshDuration time.Duration
	maxUploadBytes  int64
}

func NewHandler(
	service *Service,
	images media.Store,
	rateLimiter *ratelimit.Limiter,
	accessDuration, refreshDuration time.Duration,
	maxUploadBytes int64,
) *Handler {
	return &Handler{
		service:         service,
		images:          images,
		rateLimiter:     rateLimiter,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		maxUploadBytes:  maxUploadBytes,
	}
}

// RegisterRequest represents the JSON registration request body
type RegisterRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// GoogleLoginRequest carries the ID token obtained by the client from Google
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a local account. Accepts multipart form data with an optional avatar file, or JSON with avatar_url.
// @Tags         auth
// @Accept       json,mpfd
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} httputil.DataResponse{data=user.Profile}
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if !h.allow(w, r, "register") {
		return
	}

	var (
		req      RegisterRequest
		uploaded string
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			logger.Warn("invalid registration form", "error", err)
			httputil.RespondAppError(w, errInvalidBody)
			return
		}
		req = RegisterRequest{
			Email:    r.FormValue("email"),
			Name:     r.FormValue("name"),
			Password: r.FormValue("password"),
			Bio:      r.FormValue("bio"),
			Phone:    r.FormValue("phone"),
		}

		file, header, err := r.FormFile("avatar")
		switch {
		case err == nil:
			defer file.Close()
			res, err := h.images.Upload(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
			if err != nil {
				logger.Error("avatar upload failed", "error", err)
				httputil.RespondAppError(w, apperr.Wrap(apperr.Internal, "failed to upload avatar", err))
				return
			}
			req.AvatarURL = res.URL
			uploaded = res.URL
		case !errors.Is(err, http.ErrMissingFile):
			httputil.RespondAppError(w, errInvalidBody)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err)
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	profile, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		if uploaded != "" {
			if _, delErr := h.images.Delete(r.Context(), uploaded); delErr != nil {
				logger.Warn("failed to remove orphaned avatar", "url", uploaded, "error", delErr)
			}
		}
		logFailure(logger, "registration failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	httputil.RespondData(w, profile, "User registered successfully", http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password. Tokens are returned in the body and set as cookies.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} httputil.DataResponse{data=LoginResult}
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if !h.allow(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err)
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logFailure(logger, "login failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	SetAuthCookies(w, result.Tokens, h.accessDuration, h.refreshDuration)
	httputil.RespondData(w, result, "User logged in successfully", http.StatusOK)
}

// Refresh handles token rotation
// @Summary      Refresh tokens
// @Description  Exchange the current refresh token for a new pair. The refreshToken cookie takes precedence over the body.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} httputil.DataResponse{data=AuthTokens}
// @Failure      401 {object} httputil.ErrorResponse "Missing, invalid or superseded refresh token"
// @Router       /auth/refresh-token [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	refreshToken, _ := GetRefreshTokenFromCookie(r)

	// Fallback to body if the cookie is absent
	if refreshToken == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	refreshToken = strings.TrimSpace(refreshToken)

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		logFailure(logger, "token refresh failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	SetAuthCookies(w, tokens, h.accessDuration, h.refreshDuration)
	httputil.RespondData(w, tokens, "Access token refreshed", http.StatusOK)
}

// Logout handles user logout
// @Summary      Logout user
// @Description  Clear the stored refresh token and the auth cookies
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.DataResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, ErrUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), u.ID); err != nil {
		logFailure(logging.FromContext(r.Context()), "logout failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	ClearAuthCookies(w)
	httputil.RespondData(w, nil, "User logged out", http.StatusOK)
}

// ChangePassword handles password change for the current user
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} httputil.DataResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Wrong old password"
// @Router       /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	u, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	if err := h.service.ChangePassword(r.Context(), u.ID, req.OldPassword, req.NewPassword); err != nil {
		logFailure(logger, "password change failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	httputil.RespondData(w, nil, "Password changed successfully", http.StatusOK)
}

// PromoteToAdmin grants the admin role to another user
// @Summary      Promote user to admin
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        userID path string true "User ID"
// @Success      200 {object} httputil.DataResponse{data=user.Profile}
// @Failure      403 {object} httputil.ErrorResponse "Caller is not an admin"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/register-admin/{userID} [post]
func (h *Handler) PromoteToAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, ErrUnauthorized)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondAppError(w, ErrInvalidUserID)
		return
	}

	profile, err := h.service.PromoteToAdmin(r.Context(), actor, targetID)
	if err != nil {
		logFailure(logging.FromContext(r.Context()), "admin promotion failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	httputil.RespondData(w, profile, "User promoted to admin", http.StatusOK)
}

// GoogleLogin signs in with a Google ID token
// @Summary      Google login
// @Description  Verify a Google ID token, create the account on first login and start a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body GoogleLoginRequest true "Google ID token"
// @Success      200 {object} httputil.DataResponse{data=LoginResult}
// @Failure      401 {object} httputil.ErrorResponse "Invalid identity token"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/oauth/google [post]
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if !h.allow(w, r, "google") {
		return
	}

	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	result, err := h.service.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		logFailure(logger, "google login failed", err)
		httputil.RespondAppError(w, err)
		return
	}

	SetAuthCookies(w, result.Tokens, h.accessDuration, h.refreshDuration)
	httputil.RespondData(w, result, "User logged in successfully", http.StatusOK)
}

// allow applies the per-IP limit for purpose and records the attempt.
// Limiter failures are logged and let the request through.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.FromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err)
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondAppError(w, errTooManyTries)
		return false
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err)
	}
	return true
}

func logFailure(logger *logging.Logger, msg string, err error) {
	if apperr.KindOf(err) == apperr.Internal {
		logger.Error(msg, "error", err)
		return
	}
	logger.Warn(msg, "error", err)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// getClientIP extracts the client IP address from the request. RealIP
// middleware has already applied proxy headers to RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
