package auth

import "github.com/redmonkez12/account-api/internal/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.InvalidCredentials, "invalid email or password")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrEmailTaken         = apperr.New(apperr.Conflict, "user with this email already exists")
	ErrMissingToken       = apperr.New(apperr.Unauthorized, "authentication required")
	ErrMissingRefresh     = apperr.New(apperr.Unauthorized, "refresh token is required")
	ErrUnauthorized       = apperr.New(apperr.Unauthorized, "unauthorized request")
	ErrStaleToken         = apperr.New(apperr.StaleToken, "refresh token is expired or used")
	ErrForbidden          = apperr.New(apperr.Forbidden, "admin access required")
	ErrInvalidAssertion   = apperr.New(apperr.InvalidAssertion, "invalid identity token")

	ErrEmailRequired      = apperr.New(apperr.Validation, "email is required")
	ErrInvalidEmailFormat = apperr.New(apperr.Validation, "invalid email format")
	ErrPasswordRequired   = apperr.New(apperr.Validation, "password is required")
	ErrPasswordTooLong    = apperr.New(apperr.Validation, "password must be at most 72 bytes")
	ErrNameRequired       = apperr.New(apperr.Validation, "name is required")
	ErrPhoneRequired      = apperr.New(apperr.Validation, "phone is required")
	ErrInvalidUserID      = apperr.New(apperr.Validation, "invalid user id")
)
