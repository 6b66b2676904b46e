package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/madio/backend/internal/config"
	"github.com/madio/backend/internal/models"
)

func setupAuthConfig() *config.LockoutConfig {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
	return &config.LockoutConfig{DefaultMaxAttempts: 3, MinThreshold: 1, MaxThreshold: 10}
}

func accountDoc(t *testing.T, failedAttempts int, blocked bool) *models.AccountDoc {
	t.Helper()
	hashed, err := HashPassword("password123")
	assert.NoError(t, err)
	return &models.AccountDoc{
		DocKey:         "42",
		Email:          "user@example.com",
		Password:       hashed,
		Role:           models.RoleUser,
		IsBlocked:      blocked,
		FailedAttempts: failedAttempts,
	}
}

func TestAuthService_AttemptLogin(t *testing.T) {
	lockout := setupAuthConfig()
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		service := NewAuthService(docs, nil, lockout)
		_, err := service.AttemptLogin(ctx, "ghost@example.com", "whatever")

		var notFound *AccountNotFoundError
		assert.True(t, errors.As(err, &notFound))
	})

	t.Run("blocked account fails without touching the counter", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 3, true), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)

		service := NewAuthService(docs, nil, lockout)
		_, err := service.AttemptLogin(ctx, "user@example.com", "password123")

		var locked *LockedError
		assert.True(t, errors.As(err, &locked))
		assert.Equal(t, 3, locked.Threshold)
		docs.AssertNotCalled(t, "PatchAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong password increments and discloses remaining attempts", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 0, false), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)
		docs.On("PatchAccount", mock.Anything, "42", map[string]any{"failedAttempts": 1}).Return(nil)

		service := NewAuthService(docs, nil, lockout)
		_, err := service.AttemptLogin(ctx, "user@example.com", "wrong")

		var invalid *InvalidCredentialsError
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, 2, invalid.Remaining)
		docs.AssertExpectations(t)
	})

	t.Run("attempt reaching the threshold blocks exactly once", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 2, false), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)
		docs.On("PatchAccount", mock.Anything, "42",
			map[string]any{"failedAttempts": 3, "isBlocked": true}).Return(nil)

		service := NewAuthService(docs, nil, lockout)
		_, err := service.AttemptLogin(ctx, "user@example.com", "wrong")

		var locked *LockedError
		assert.True(t, errors.As(err, &locked))
		assert.Equal(t, 3, locked.Threshold)
		docs.AssertExpectations(t)
	})

	t.Run("successful login resets a dirty counter", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 2, false), nil)
		docs.On("PatchAccount", mock.Anything, "42", map[string]any{"failedAttempts": 0}).Return(nil)

		service := NewAuthService(docs, nil, lockout)
		doc, err := service.AttemptLogin(ctx, "user@example.com", "password123")

		assert.NoError(t, err)
		assert.Equal(t, 0, doc.FailedAttempts)
		docs.AssertExpectations(t)
	})

	t.Run("successful login with clean counter writes nothing", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 0, false), nil)

		service := NewAuthService(docs, nil, lockout)
		doc, err := service.AttemptLogin(ctx, "user@example.com", "password123")

		assert.NoError(t, err)
		assert.Equal(t, "42", doc.DocKey)
		docs.AssertNotCalled(t, "PatchAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing mirrored config falls back to the default threshold", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 0, false), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("", false, nil)
		docs.On("PatchAccount", mock.Anything, "42", map[string]any{"failedAttempts": 1}).Return(nil)

		service := NewAuthService(docs, nil, lockout)
		_, err := service.AttemptLogin(ctx, "user@example.com", "wrong")

		var invalid *InvalidCredentialsError
		assert.True(t, errors.As(err, &invalid))
		assert.Equal(t, 2, invalid.Remaining)
	})

	t.Run("lockout progression with threshold 3", func(t *testing.T) {
		// remaining goes 2, 1, then the third attempt locks.
		for attempt, prior := range []int{0, 1, 2} {
			docs := &MockDocumentStore{}
			docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, prior, false), nil)
			docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)
			docs.On("PatchAccount", mock.Anything, "42", mock.Anything).Return(nil)

			service := NewAuthService(docs, nil, lockout)
			_, err := service.AttemptLogin(ctx, "user@example.com", "wrong")

			if prior < 2 {
				var invalid *InvalidCredentialsError
				assert.True(t, errors.As(err, &invalid), "attempt %d", attempt)
				assert.Equal(t, 2-prior, invalid.Remaining)
			} else {
				var locked *LockedError
				assert.True(t, errors.As(err, &locked), "attempt %d", attempt)
			}
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	lockout := setupAuthConfig()

	post := func(service *AuthService, body []byte) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		service.Login(w, r)
		return w
	}

	t.Run("successful login returns token and identity", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 0, false), nil)

		service := NewAuthService(docs, nil, lockout)
		body, _ := json.Marshal(LoginRequest{Email: "user@example.com", Password: "password123"})
		w := post(service, body)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "42", response.User.DocKey)
		assert.Equal(t, models.RoleUser, response.User.Role)
	})

	t.Run("wrong password yields 401 with remaining attempts in message", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 0, false), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)
		docs.On("PatchAccount", mock.Anything, "42", mock.Anything).Return(nil)

		service := NewAuthService(docs, nil, lockout)
		body, _ := json.Marshal(LoginRequest{Email: "user@example.com", Password: "nope"})
		w := post(service, body)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var response ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Contains(t, response.Error, "2 attempt(s) remaining")
	})

	t.Run("blocked account yields 423", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "user@example.com").Return(accountDoc(t, 3, true), nil)
		docs.On("GetConfig", mock.Anything, models.ConfigMaxAttempts).Return("3", true, nil)

		service := NewAuthService(docs, nil, lockout)
		body, _ := json.Marshal(LoginRequest{Email: "user@example.com", Password: "password123"})
		w := post(service, body)

		assert.Equal(t, http.StatusLocked, w.Code)
	})

	t.Run("unknown email yields 404", func(t *testing.T) {
		docs := &MockDocumentStore{}
		docs.On("FindAccountByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		service := NewAuthService(docs, nil, lockout)
		body, _ := json.Marshal(LoginRequest{Email: "ghost@example.com", Password: "password123"})
		w := post(service, body)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid request body", func(t *testing.T) {
		service := NewAuthService(&MockDocumentStore{}, nil, lockout)
		w := post(service, []byte("invalid"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	password := "testpassword"

	hashed, err := HashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, verifyPassword(password, hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
}

func TestGenerateJWT(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)

	token, err := generateJWT("42", models.RoleManager)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}
