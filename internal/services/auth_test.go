package services

import (
	"context"
	"testing"
	"time"

	"smartacademy/internal/models"
	"smartacademy/internal/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoginSuccess(t *testing.T) {
	hash, err := utils.HashPasswordWithCost("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	store := newMemStore(&models.User{ID: 5, Email: studentEmail, PasswordHash: hash, Role: "student"})
	svc := NewAuthService(store, "jwt-secret", 15*time.Minute)

	access, user, err := svc.Login(context.Background(), studentEmail, "secret123")
	require.NoError(t, err)
	require.Equal(t, int64(5), user.ID)

	id, role, err := utils.ParseToken("jwt-secret", access)
	require.NoError(t, err)
	require.Equal(t, int64(5), id)
	require.Equal(t, "student", role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hash, err := utils.HashPasswordWithCost("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	store := newMemStore(&models.User{ID: 5, Email: studentEmail, PasswordHash: hash})
	svc := NewAuthService(store, "jwt-secret", time.Minute)

	_, _, errUnknown := svc.Login(context.Background(), "ghost@academy.test", "secret123")
	_, _, errWrong := svc.Login(context.Background(), studentEmail, "wrong")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
}
