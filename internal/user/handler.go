package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/account-api/internal/apperr"
	"github.com/redmonkez12/account-api/internal/httputil"
	"github.com/redmonkez12/account-api/internal/logging"
)

var (
	errInvalidBody   = apperr.New(apperr.Validation, "invalid request body")
	errInvalidUserID = apperr.New(apperr.Validation, "invalid user id")
	errUnauthorized  = apperr.New(apperr.Unauthorized, "unauthorized request")
)

// Handler serves the profile endpoints. Every route runs behind RequireAuth.
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// UpdateAccountRequest represents the account details update body
type UpdateAccountRequest struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Phone string `json:"phone"`
}

// VisibilityRequest toggles whether other users can see the profile
type VisibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

// Current returns the authenticated user
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.DataResponse{data=Profile}
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /users/current [get]
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, errUnauthorized)
		return
	}
	httputil.RespondData(w, h.service.Current(u), "Current user fetched", http.StatusOK)
}

// UpdateAccount changes name, bio and phone
// @Summary      Update account details
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateAccountRequest true "Account details"
// @Success      200 {object} httputil.DataResponse{data=Profile}
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/account [patch]
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, errUnauthorized)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	profile, err := h.service.UpdateDetails(r.Context(), u.ID, req.Name, req.Bio, req.Phone)
	if err != nil {
		h.fail(w, r, "account update failed", err)
		return
	}
	httputil.RespondData(w, profile, "Account details updated", http.StatusOK)
}

// UpdateAvatar replaces the avatar image
// @Summary      Update avatar
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        avatar formData file true "Avatar image"
// @Success      200 {object} httputil.DataResponse{data=Profile}
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/avatar [patch]
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, errUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httputil.RespondAppError(w, errInvalidBody)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			httputil.RespondAppError(w, ErrAvatarRequired)
			return
		}
		httputil.RespondAppError(w, errInvalidBody)
		return
	}
	defer file.Close()

	profile, err := h.service.UpdateAvatar(r.Context(), u.ID, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.fail(w, r, "avatar update failed", err)
		return
	}
	httputil.RespondData(w, profile, "Avatar updated", http.StatusOK)
}

// SetVisibility makes the profile public or private
// @Summary      Set profile visibility
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body VisibilityRequest true "Visibility"
// @Success      200 {object} httputil.DataResponse{data=Profile}
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /users/profile/visibility [put]
func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		httputil.RespondAppError(w, errUnauthorized)
		return
	}

	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondAppError(w, errInvalidBody)
		return
	}
	if req.IsPublic == nil {
		httputil.RespondAppError(w, ErrVisibilityNeeded)
		return
	}

	profile, err := h.service.SetVisibility(r.Context(), u.ID, *req.IsPublic)
	if err != nil {
		h.fail(w, r, "visibility update failed", err)
		return
	}
	httputil.RespondData(w, profile, "Profile visibility updated", http.StatusOK)
}

// GetProfile returns another user's profile
// @Summary      Get profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userID path string true "User ID"
// @Success      200 {object} httputil.DataResponse{data=Profile}
// @Failure      403 {object} httputil.ErrorResponse "Profile is private"
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/profile/{userID} [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewer, _ := FromContext(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondAppError(w, errInvalidUserID)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), viewer, targetID)
	if err != nil {
		h.fail(w, r, "profile lookup failed", err)
		return
	}
	httputil.RespondData(w, profile, "Profile fetched", http.StatusOK)
}

// ListProfiles returns all profiles
// @Summary      List profiles
// @Description  Admin only
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.DataResponse{data=[]Profile}
// @Failure      403 {object} httputil.ErrorResponse
// @Router       /users/profiles [get]
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.fail(w, r, "profile listing failed", err)
		return
	}
	httputil.RespondData(w, profiles, "Profiles fetched", http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger := logging.FromContext(r.Context())
	if apperr.KindOf(err) == apperr.Internal {
		logger.Error(msg, "error", err)
	} else {
		logger.Warn(msg, "error", err)
	}
	httputil.RespondAppError(w, err)
}
