package service

import (
	"context"
	"testing"
	"time"

	"trade-service/internal/auth"
	"trade-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture() (*AuthService, *memUsers, *auth.Manager) {
	users := newMemUsers()
	tokens := auth.NewManager("test-secret", time.Hour)
	return NewAuthService(users, tokens), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, tokens := newAuthFixture()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, &RegisterRequest{
		Name:     "Bella Buyer",
		Username: "Bella",
		Email:    "Bella@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "bella", user.Username)
	assert.Equal(t, "bella@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// case-insensitive username login
	logged, _, err := svc.Login(ctx, &LoginRequest{Username: "BELLA", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = svc.Login(ctx, &LoginRequest{Username: "bella", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, &RegisterRequest{Name: "X", Username: "x", Email: "x@y.z", Password: "short"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = svc.Register(ctx, &RegisterRequest{Username: "x", Email: "x@y.z", Password: "long enough"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, _, err = svc.Register(ctx, &RegisterRequest{Name: "A", Username: "dupe", Email: "a@y.z", Password: "long enough"})
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, &RegisterRequest{Name: "B", Username: "dupe", Email: "b@y.z", Password: "long enough"})
	assert.ErrorIs(t, err, models.ErrConflict)
	_, _, err = svc.Register(ctx, &RegisterRequest{Name: "C", Username: "fresh", Email: "a@y.z", Password: "long enough"})
	assert.ErrorIs(t, err, models.ErrConflict)
}
