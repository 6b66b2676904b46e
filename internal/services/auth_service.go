package services

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/madio/backend/internal/config"
	"github.com/madio/backend/internal/models"
	"github.com/madio/backend/internal/store"
)

// AuthService verifies mobile logins against the document store and applies
// the failed-attempt lockout state machine. No relational-store call happens
// on this path: the mobile client only ever talks to the document store.
type AuthService struct {
	docs      store.DocumentStore
	sessions  *redis.Client
	validator *ValidationHelper
	lockout   *config.LockoutConfig
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string      `json:"token"`
	User  AccountInfo `json:"user"`
}

// AccountInfo is the identity slice returned to a logged-in client.
type AccountInfo struct {
	DocKey string `json:"docKey"`
	Email  string `json:"email"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	Role   string `json:"role"`
}

func NewAuthService(docs store.DocumentStore, sessions *redis.Client, lockout *config.LockoutConfig) *AuthService {
	return &AuthService{
		docs:      docs,
		sessions:  sessions,
		validator: NewValidationHelper(),
		lockout:   lockout,
	}
}

// AttemptLogin verifies credentials and applies the attempt/threshold state
// machine. Returns the account document on success; otherwise one of
// AccountNotFoundError, LockedError or InvalidCredentialsError.
//
// The read-increment-write on failedAttempts is not transactional. Two
// concurrent wrong-password attempts can under-count by one; acceptable for
// interactive human logins.
func (s *AuthService) AttemptLogin(ctx context.Context, email, password string) (*models.AccountDoc, error) {
	doc, err := s.docs.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &AccountNotFoundError{Email: email}
	}

	// Blocked accounts do not accumulate further attempts.
	if doc.IsBlocked {
		return nil, &LockedError{Threshold: s.maxAttempts(ctx)}
	}

	if verifyPassword(password, doc.Password) {
		if doc.FailedAttempts > 0 {
			if err := s.docs.PatchAccount(ctx, doc.DocKey, map[string]any{"failedAttempts": 0}); err != nil {
				log.Printf("[AUTH] Failed to reset attempts for %s: %v", doc.DocKey, err)
			} else {
				doc.FailedAttempts = 0
			}
		}
		return doc, nil
	}

	threshold := s.maxAttempts(ctx)
	newCount := doc.FailedAttempts + 1

	fields := map[string]any{"failedAttempts": newCount}
	if newCount >= threshold {
		fields["isBlocked"] = true
	}
	if err := s.docs.PatchAccount(ctx, doc.DocKey, fields); err != nil {
		log.Printf("[AUTH] Failed to record attempt %d for %s: %v", newCount, doc.DocKey, err)
	}

	if newCount >= threshold {
		log.Printf("[AUTH] Account %s locked after %d failed attempts", doc.DocKey, newCount)
		return nil, &LockedError{Threshold: threshold}
	}
	return nil, &InvalidCredentialsError{Remaining: threshold - newCount}
}

// maxAttempts reads the mirrored threshold, falling back to the configured
// default when the value is absent or unreadable.
func (s *AuthService) maxAttempts(ctx context.Context) int {
	value, ok, err := s.docs.GetConfig(ctx, models.ConfigMaxAttempts)
	if err != nil {
		log.Printf("[AUTH] Failed to read %s, using default: %v", models.ConfigMaxAttempts, err)
		return s.lockout.DefaultMaxAttempts
	}
	if !ok {
		return s.lockout.DefaultMaxAttempts
	}
	threshold, err := strconv.Atoi(value)
	if err != nil || threshold < 1 {
		log.Printf("[AUTH] Unusable %s value %q, using default", models.ConfigMaxAttempts, value)
		return s.lockout.DefaultMaxAttempts
	}
	return threshold
}

// Login handles mobile authentication
// @Summary Login user
// @Description Authenticate against the mobile account mirror, enforcing lockout
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 423 {object} ErrorResponse "Account locked"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	doc, err := s.AttemptLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		var notFound *AccountNotFoundError
		var locked *LockedError
		var invalid *InvalidCredentialsError
		switch {
		case errors.As(err, &notFound):
			SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
		case errors.As(err, &locked):
			log.Printf("[AUTH] Locked account login for %s", req.Email)
			SendErrorResponse(w, err.Error(), http.StatusLocked, nil)
		case errors.As(err, &invalid):
			log.Printf("[AUTH] Invalid password for %s, %d remaining", req.Email, invalid.Remaining)
			SendErrorResponse(w, err.Error(), http.StatusUnauthorized, nil)
		default:
			log.Printf("[AUTH] Login failed for %s: %v", req.Email, err)
			SendErrorResponse(w, "Authentication unavailable", http.StatusServiceUnavailable, nil)
		}
		return
	}

	token, err := generateJWT(doc.DocKey, doc.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for %s: %v", doc.DocKey, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for account %s", doc.DocKey)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{
		Token: token,
		User: AccountInfo{
			DocKey: doc.DocKey,
			Email:  doc.Email,
			Nom:    doc.Nom,
			Prenom: doc.Prenom,
			Role:   doc.Role,
		},
	})
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.sessions != nil {
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.sessions.Set(r.Context(), key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

func generateJWT(accountKey, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_key": accountKey,
		"role":        role,
		"exp":         time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// HashPassword produces the salt$hash encoding stored in both stores. The
// registration path (outside this core) mirrors accounts with the same
// encoding the authenticator verifies.
func HashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
