package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"smartacademy/internal/models"
	"smartacademy/internal/repository"
	"smartacademy/internal/services"
	"smartacademy/internal/utils"

	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	byEmail map[string]*models.User
	err     error
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func newAuthHandlerForTest(t *testing.T, users *fakeUsers) http.Handler {
	t.Helper()
	h := NewAuthHandler(services.NewAuthService(users, "test-secret", time.Minute))
	return http.HandlerFunc(h.Login)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPasswordWithCost("Secret123", 4)
	require.NoError(t, err)
	users := &fakeUsers{byEmail: map[string]*models.User{
		"student@academy.test": {ID: 7, Username: "student", FullName: "Ivan Petrov", Email: "student@academy.test", PasswordHash: hash, Role: "student"},
	}}
	h := newAuthHandlerForTest(t, users)

	t.Run("ok", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/login", `{"email":"student@academy.test","password":"Secret123"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data loginResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "student", body.Data.Role)

		uid, role, err := utils.ParseToken("test-secret", body.Data.AccessToken)
		require.NoError(t, err)
		require.Equal(t, int64(7), uid)
		require.Equal(t, "student", role)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/login", `{"email":"student@academy.test","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/login", `{"email":"ghost@academy.test","password":"Secret123"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad payload", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/login", `{"email":"not-an-email"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginRepositoryFailure(t *testing.T) {
	h := newAuthHandlerForTest(t, &fakeUsers{err: errors.New("db down")})
	rec := do(t, h, http.MethodPost, "/api/login", `{"email":"student@academy.test","password":"Secret123"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
