package auth

import "github.com/redmonkez12/account-api/internal/user"

// AuthTokens is the token pair handed to clients
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult is returned by password and Google login
type LoginResult struct {
	Tokens *AuthTokens   `json:"tokens"`
	User   *user.Profile `json:"user"`
}

// IdentityAssertion is what a verified Google ID token tells us about the caller
type IdentityAssertion struct {
	Email      string
	Name       string
	PictureURL string
}

// RegisterInput carries the fields of a local sign-up
type RegisterInput struct {
	Email     string
	Name      string
	Password  string
	Bio       string
	Phone     string
	AvatarURL string
}
