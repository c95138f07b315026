package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByKind(t *testing.T) {
	t.Parallel()

	expired := New(InvalidToken, "token has expired")
	invalid := New(InvalidToken, "invalid token")

	assert.True(t, errors.Is(expired, invalid))
	assert.False(t, errors.Is(expired, New(StaleToken, "stale")))

	wrapped := fmt.Errorf("refresh: %w", expired)
	assert.True(t, errors.Is(wrapped, invalid))
}

func TestWrap_UnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := Wrap(Internal, "failed to load user", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to load user: connection reset", err.Error())
}

func TestInternalf(t *testing.T) {
	t.Parallel()

	classified := New(NotFound, "user not found")
	assert.Same(t, classified, Internalf("lookup", classified))

	err := Internalf("lookup", errors.New("boom"))
	assert.Equal(t, Internal, KindOf(err))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Conflict, KindOf(fmt.Errorf("x: %w", New(Conflict, "dup"))))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Nil(t, From(errors.New("plain")))
	require.NotNil(t, From(WithDetails(Validation, "bad", "email is required")))
}

func TestKind_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Conflict, http.StatusConflict},
		{NotFound, http.StatusNotFound},
		{InvalidCredentials, http.StatusUnauthorized},
		{Unauthorized, http.StatusUnauthorized},
		{InvalidToken, http.StatusUnauthorized},
		{StaleToken, http.StatusUnauthorized},
		{InvalidAssertion, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{TooManyRequests, http.StatusTooManyRequests},
		{Internal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.HTTPStatus(), string(tc.kind))
	}
}
