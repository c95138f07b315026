package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CredentialKind tells how an account proves its identity
type CredentialKind string

const (
	CredentialLocal     CredentialKind = "local"
	CredentialFederated CredentialKind = "federated"
)

// ProviderGoogle names the only federated identity provider.
const ProviderGoogle = "google"

// Credential is either a local password hash or a federated provider.
type Credential struct {
	Kind         CredentialKind
	PasswordHash string // set only for CredentialLocal
	Provider     string // set only for CredentialFederated
}

// LocalCredential wraps a password hash produced by the hashing service.
func LocalCredential(passwordHash string) Credential {
	return Credential{Kind: CredentialLocal, PasswordHash: passwordHash}
}

// FederatedCredential marks an account provisioned by a trusted provider.
func FederatedCredential(provider string) Credential {
	return Credential{Kind: CredentialFederated, Provider: provider}
}

// SupportsPassword reports whether the account can log in with a password.
func (c Credential) SupportsPassword() bool {
	return c.Kind == CredentialLocal && c.PasswordHash != ""
}

type User struct {
	ID           uuid.UUID
	Email        string
	Credential   Credential
	Name         string
	Bio          string
	Phone        string
	AvatarURL    string
	IsPublic     bool
	IsAdmin      bool
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the client-facing view of a user. It never carries the password
// hash or the refresh token.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	Phone        string    `json:"phone"`
	AvatarURL    string    `json:"avatar"`
	AuthProvider string    `json:"auth_provider"`
	IsPublic     bool      `json:"is_public"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile returns the sanitized representation of u.
func (u *User) Profile() *Profile {
	provider := string(CredentialLocal)
	if u.Credential.Kind == CredentialFederated {
		provider = u.Credential.Provider
	}
	return &Profile{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Bio:          u.Bio,
		Phone:        u.Phone,
		AvatarURL:    u.AvatarURL,
		AuthProvider: provider,
		IsPublic:     u.IsPublic,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// NormalizeEmail lower-cases and trims an address the way the store indexes it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
