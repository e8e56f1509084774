package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkpad-app/sparkpad/backend/internal/domain"
	"github.com/sparkpad-app/sparkpad/backend/pkg/auth"
)

func TestVerifyCredentials(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse-battery")
	require.NoError(t, err)
	user := &domain.User{ID: 1, Email: "a@b.co", PasswordHash: hash}

	assert.NoError(t, verifyCredentials(user, "correct-horse-battery"))

	assert.ErrorIs(t, verifyCredentials(user, "wrong-password"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, verifyCredentials(nil, "correct-horse-battery"), domain.ErrInvalidCredentials)

	// OAuth-created accounts have no password hash and must never pass a
	// password login, not even with an empty password.
	oauthUser := &domain.User{ID: 2, Email: "c@d.co"}
	assert.ErrorIs(t, verifyCredentials(oauthUser, ""), domain.ErrInvalidCredentials)
}
