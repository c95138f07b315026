package auth

import (
	"context"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/redmonkez12/account-api/internal/apperr"
)

// validateIDToken is replaced in tests
var validateIDToken = idtoken.Validate

// IdentityVerifier checks a third-party identity token
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*IdentityAssertion, error)
}

// GoogleVerifier validates Google ID tokens against the configured client id
type GoogleVerifier struct {
	clientID string
	timeout  time.Duration
}

func NewGoogleVerifier(clientID string, timeout time.Duration) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, timeout: timeout}
}

// Verify checks signature and audience. Every failure, including a timeout,
// is reported as ErrInvalidAssertion.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*IdentityAssertion, error) {
	if rawToken == "" {
		return nil, ErrInvalidAssertion
	}
	if v.clientID == "" {
		return nil, apperr.New(apperr.InvalidAssertion, "google login is not configured")
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	payload, err := validateIDToken(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidAssertion, ErrInvalidAssertion.Message, err)
	}

	email := claimString(payload.Claims, "email")
	if email == "" {
		return nil, ErrInvalidAssertion
	}
	if !claimTrue(payload.Claims, "email_verified") {
		return nil, apperr.New(apperr.InvalidAssertion, "google email is not verified")
	}

	return &IdentityAssertion{
		Email:      email,
		Name:       claimString(payload.Claims, "name"),
		PictureURL: claimString(payload.Claims, "picture"),
	}, nil
}

// claimTrue accepts both the boolean and the string form of a flag claim
func claimTrue(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
