package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted form of an account
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash *string   `bun:"password_hash"`
	AuthProvider string    `bun:"auth_provider,notnull"`
	Name         string    `bun:"name,notnull"`
	Bio          string    `bun:"bio,notnull"`
	Phone        string    `bun:"phone,notnull"`
	AvatarURL    string    `bun:"avatar_url,notnull"`
	IsPublic     bool      `bun:"is_public,notnull"`
	IsAdmin      bool      `bun:"is_admin,notnull"`
	RefreshToken *string   `bun:"refresh_token"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}
