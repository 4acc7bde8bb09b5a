package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocks-simulator/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newFakeQuotes())
	ctx := context.Background()

	user, err := svc.Register(ctx, "  alice ", "pa55word!", "pa55word!")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Cash.Equal(models.StartingCash))
	assert.NotEqual(t, "pa55word!", user.Hash)

	got, err := svc.Authenticate(ctx, "alice", "pa55word!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong1!")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "bob", "pa55word!")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "invalid username and/or password")
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newMemStore(), newFakeQuotes())

	tests := []struct {
		name                   string
		username, pass, repeat string
		msg                    string
	}{
		{"blank username", "  ", "a1!", "a1!", "username cannot be blank"},
		{"blank password", "carol", "", "", "password cannot be blank"},
		{"mismatch", "carol", "a1!", "a1?", "passwords do not match"},
		{"no digit", "carol", "abc!", "abc!", "password must contain at least 1 letter, 1 digit and 1 symbol"},
		{"no letter", "carol", "123!", "123!", "password must contain at least 1 letter, 1 digit and 1 symbol"},
		{"no symbol", "carol", "abc123", "abc123", "password must contain at least 1 letter, 1 digit and 1 symbol"},
		{"too long", "carol", strings.Repeat("a1!", 30), strings.Repeat("a1!", 30), "password must be at most 72 bytes long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.pass, tt.repeat)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.msg)
			assert.True(t, IsUserError(err))
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newFakeQuotes())
	ctx := context.Background()

	_, err := svc.Register(ctx, "dave", "d4ve!", "d4ve!")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "dave", "other1?", "other1?")
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "username already taken, please choose another one")
	assert.Len(t, store.users, 1)
}

func TestRegisterStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failOn = "CreateUser"
	svc := newTestService(store, newFakeQuotes())

	_, err := svc.Register(context.Background(), "erin", "er1n!", "er1n!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDiskFull))
	assert.False(t, IsUserError(err))
	assert.Empty(t, store.users)
}

func TestAuthenticateBlankFields(t *testing.T) {
	svc := newTestService(newMemStore(), newFakeQuotes())

	_, err := svc.Authenticate(context.Background(), "", "x")
	assert.EqualError(t, err, "must provide username")
	_, err = svc.Authenticate(context.Background(), "frank", "")
	assert.EqualError(t, err, "must provide password")
}

func TestPasswordPolicy(t *testing.T) {
	assert.True(t, satisfiesPasswordPolicy("a1!"))
	assert.True(t, satisfiesPasswordPolicy("ü9 "))
	assert.False(t, satisfiesPasswordPolicy("aaaa"))
	assert.False(t, satisfiesPasswordPolicy("a1"))
	assert.False(t, satisfiesPasswordPolicy(""))

	// Numeric characters outside ASCII count as digits, not symbols.
	assert.False(t, satisfiesPasswordPolicy("a1²"))
	assert.True(t, satisfiesPasswordPolicy("a²!"))
	assert.True(t, satisfiesPasswordPolicy("xⅫ#"))
	assert.False(t, satisfiesPasswordPolicy("x٣Ⅻ"))
}
