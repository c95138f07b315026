package user

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/account-api/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.OpenInMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func newLocalUser(email string) *User {
	return &User{
		Email:      email,
		Credential: LocalCredential("$2a$10$hash"),
		Name:       "Ada",
		Phone:      "555",
		AvatarURL:  "http://img/a.png",
		IsPublic:   true,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u := newLocalUser("  Ada@Example.COM ")
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, CredentialLocal, byEmail.Credential.Kind)
	assert.Equal(t, "$2a$10$hash", byEmail.Credential.PasswordHash)
	assert.True(t, byEmail.IsPublic)
	assert.False(t, byEmail.IsAdmin)
	assert.Nil(t, byEmail.RefreshToken)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.Name)
}

func TestRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(ctx, newLocalUser("a@x.com")))
	err := repo.Create(ctx, newLocalUser("A@X.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SetAdmin(ctx, uuid.New()), ErrNotFound)
}

func TestRepository_FederatedCredential(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u := &User{Email: "g@x.com", Credential: FederatedCredential(ProviderGoogle), Name: "G", IsPublic: true}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, CredentialFederated, got.Credential.Kind)
	assert.Equal(t, ProviderGoogle, got.Credential.Provider)
	assert.False(t, got.Credential.SupportsPassword())

	// federated rows have no password to update
	assert.ErrorIs(t, repo.UpdatePassword(ctx, u.ID, "hash"), ErrNotFound)
}

func TestRepository_SwapRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u := newLocalUser("a@x.com")
	require.NoError(t, repo.Create(ctx, u))

	first := "token-1"
	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, &first))

	ok, err := repo.SwapRefreshToken(ctx, u.ID, "token-1", "token-2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SwapRefreshToken(ctx, u.ID, "token-1", "token-3")
	require.NoError(t, err)
	assert.False(t, ok, "superseded token must not rotate")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "token-2", *got.RefreshToken)

	require.NoError(t, repo.SetRefreshToken(ctx, u.ID, nil))
	ok, err = repo.SwapRefreshToken(ctx, u.ID, "token-2", "token-4")
	require.NoError(t, err)
	assert.False(t, ok, "cleared token must not rotate")
}

func TestRepository_UpdateProfileAndAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u := newLocalUser("a@x.com")
	require.NoError(t, repo.Create(ctx, u))

	name, private := "Grace", false
	updated, err := repo.UpdateProfile(ctx, u.ID, ProfileUpdate{Name: &name, IsPublic: &private})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.Name)
	assert.Equal(t, "555", updated.Phone)
	assert.False(t, updated.IsPublic)

	require.NoError(t, repo.SetAdmin(ctx, u.ID))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	require.NoError(t, repo.Create(ctx, newLocalUser("b@x.com")))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUser_ProfileIsSanitized(t *testing.T) {
	token := "secret-refresh"
	u := newLocalUser("a@x.com")
	u.RefreshToken = &token

	p := u.Profile()
	assert.Equal(t, "local", p.AuthProvider)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), token)
	assert.NotContains(t, string(raw), u.Credential.PasswordHash)
}
