package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/account-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db  bun.IDB
	now func() time.Time
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create inserts a new user. ID and timestamps are assigned here when unset.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := r.now().UTC()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.NewInsert().
		Model(mapModelToDBUser(u)).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", NormalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// List returns every user, newest first
func (r *Repository) List(ctx context.Context) ([]*User, error) {
	var dbUsers []database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}
	return users, nil
}

// ProfileUpdate lists the profile columns that can change. Nil fields are left alone.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	Phone     *string
	AvatarURL *string
	IsPublic  *bool
}

// UpdateProfile applies the non-nil fields of upd to the user and returns the result
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id)

	if upd.Name != nil {
		q = q.Set("name = ?", *upd.Name)
	}
	if upd.Bio != nil {
		q = q.Set("bio = ?", *upd.Bio)
	}
	if upd.Phone != nil {
		q = q.Set("phone = ?", *upd.Phone)
	}
	if upd.AvatarURL != nil {
		q = q.Set("avatar_url = ?", *upd.AvatarURL)
	}
	if upd.IsPublic != nil {
		q = q.Set("is_public = ?", *upd.IsPublic)
	}

	if err := execOne(ctx, q, "update profile"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("auth_provider = ?", string(CredentialLocal))

	return execOne(ctx, q, "update password")
}

// SetAdmin grants the admin role. There is no way back.
func (r *Repository) SetAdmin(ctx context.Context, id uuid.UUID) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("is_admin = ?", true).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id)

	return execOne(ctx, q, "promote user")
}

// SetRefreshToken overwrites the stored refresh token; nil clears it
func (r *Repository) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id)

	return execOne(ctx, q, "store refresh token")
}

// SwapRefreshToken replaces the stored refresh token with next only if it
// still equals expected. It reports false when another rotation, a new login
// or a logout got there first.
func (r *Repository) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("refresh_token = ?", next).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("refresh_token = ?", expected).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func execOne(ctx context.Context, q *bun.UpdateQuery, what string) error {
	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation recognises unique-constraint failures from postgres and sqlite
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func mapModelToDBUser(u *User) *database.User {
	dbu := &database.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Bio:          u.Bio,
		Phone:        u.Phone,
		AvatarURL:    u.AvatarURL,
		IsPublic:     u.IsPublic,
		IsAdmin:      u.IsAdmin,
		RefreshToken: u.RefreshToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}

	switch u.Credential.Kind {
	case CredentialFederated:
		dbu.AuthProvider = u.Credential.Provider
	default:
		dbu.AuthProvider = string(CredentialLocal)
		hash := u.Credential.PasswordHash
		dbu.PasswordHash = &hash
	}

	return dbu
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	cred := FederatedCredential(dbu.AuthProvider)
	if dbu.AuthProvider == string(CredentialLocal) {
		var hash string
		if dbu.PasswordHash != nil {
			hash = *dbu.PasswordHash
		}
		cred = LocalCredential(hash)
	}

	return &User{
		ID:           dbu.ID,
		Email:        dbu.Email,
		Credential:   cred,
		Name:         dbu.Name,
		Bio:          dbu.Bio,
		Phone:        dbu.Phone,
		AvatarURL:    dbu.AvatarURL,
		IsPublic:     dbu.IsPublic,
		IsAdmin:      dbu.IsAdmin,
		RefreshToken: dbu.RefreshToken,
		CreatedAt:    dbu.CreatedAt,
		UpdatedAt:    dbu.UpdatedAt,
	}
}
