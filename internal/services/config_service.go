package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/madio/backend/internal/config"
	"github.com/madio/backend/internal/models"
	"github.com/madio/backend/internal/store"
)

// ConfigService owns the lockout threshold: the relational value is the
// source of truth, edited by managers, and pushed into the document store so
// the mobile client's self-contained lockout check sees it. Persist and
// propagate are deliberately two steps; a failed push can be retried without
// rewriting the authoritative value.
type ConfigService struct {
	docs    store.DocumentStore
	rel     store.RelationalStore
	lockout *config.LockoutConfig
}

func NewConfigService(docs store.DocumentStore, rel store.RelationalStore, lockout *config.LockoutConfig) *ConfigService {
	return &ConfigService{docs: docs, rel: rel, lockout: lockout}
}

// GetMaxAttempts returns the authoritative threshold, defaulting when the
// configuration row was never written.
func (s *ConfigService) GetMaxAttempts(ctx context.Context) (int, error) {
	value, err := s.rel.GetMaxAttempts(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return s.lockout.DefaultMaxAttempts, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// SetMaxAttempts validates the policy bound and writes the relational value.
// It does not propagate; see PropagateMaxAttempts.
func (s *ConfigService) SetMaxAttempts(ctx context.Context, value int) error {
	if value < s.lockout.MinThreshold || value > s.lockout.MaxThreshold {
		return &ValidationError{Reason: fmt.Sprintf(
			"max attempts must be between %d and %d", s.lockout.MinThreshold, s.lockout.MaxThreshold)}
	}
	if err := s.rel.SetMaxAttempts(ctx, value); err != nil {
		return err
	}
	log.Printf("[CONFIG] max_attempts set to %d", value)
	return nil
}

// PropagateMaxAttempts pushes the current relational threshold into the
// mirrored configuration document, overwriting whatever was there. Mobile
// sessions already past their config read are not notified.
func (s *ConfigService) PropagateMaxAttempts(ctx context.Context) error {
	value, err := s.GetMaxAttempts(ctx)
	if err != nil {
		return err
	}
	if err := s.docs.SetConfig(ctx, models.ConfigMaxAttempts, strconv.Itoa(value)); err != nil {
		return &PropagationPartialFailure{What: "max_attempts configuration", Err: err}
	}
	log.Printf("[CONFIG] max_attempts=%d propagated to document store", value)
	return nil
}

// HandleGetMaxAttempts reads the threshold
// @Summary Get the lockout threshold
// @Tags configuration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Configuration
// @Router /configuration/max-attempts [get]
func (s *ConfigService) HandleGetMaxAttempts(w http.ResponseWriter, r *http.Request) {
	value, err := s.GetMaxAttempts(r.Context())
	if err != nil {
		log.Printf("[CONFIG] Failed to read max_attempts: %v", err)
		SendErrorResponse(w, "Failed to read configuration", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.Configuration{
		Libelle: models.ConfigMaxAttempts,
		Valeur:  strconv.Itoa(value),
	})
}

// HandleSetMaxAttempts persists a new threshold
// @Summary Update the lockout threshold
// @Tags configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{value=int} true "New threshold"
// @Success 200 {object} map[string]any
// @Failure 400 {object} ErrorResponse "Out of policy bound"
// @Router /configuration/max-attempts [put]
func (s *ConfigService) HandleSetMaxAttempts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value int `json:"value"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.SetMaxAttempts(r.Context(), req.Value); err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
			return
		}
		log.Printf("[CONFIG] Failed to write max_attempts: %v", err)
		SendErrorResponse(w, "Failed to write configuration", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "maxAttempts": req.Value})
}

// HandlePropagate pushes the threshold to the document store
// @Summary Propagate the lockout threshold to the mobile mirror
// @Tags configuration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 502 {object} ErrorResponse "Mirror write failed"
// @Router /configuration/sync [post]
func (s *ConfigService) HandlePropagate(w http.ResponseWriter, r *http.Request) {
	if err := s.PropagateMaxAttempts(r.Context()); err != nil {
		var partial *PropagationPartialFailure
		if errors.As(err, &partial) {
			SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
			return
		}
		log.Printf("[CONFIG] Propagation failed: %v", err)
		SendErrorResponse(w, "Failed to propagate configuration", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}
