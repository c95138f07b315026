package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetAuthCookies stores both tokens as HttpOnly, Secure cookies that live as
// long as the tokens themselves.
func SetAuthCookies(w http.ResponseWriter, tokens *AuthTokens, accessDuration, refreshDuration time.Duration) {
	http.SetCookie(w, newAuthCookie(AccessTokenCookie, tokens.AccessToken, accessDuration))
	http.SetCookie(w, newAuthCookie(RefreshTokenCookie, tokens.RefreshToken, refreshDuration))
}

// ClearAuthCookies expires both token cookies
func ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := newAuthCookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func GetAccessTokenFromCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func newAuthCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
