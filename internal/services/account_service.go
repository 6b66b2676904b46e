package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/madio/backend/internal/models"
	"github.com/madio/backend/internal/store"
)

// AccountService propagates admin block/unblock decisions. The relational
// store is written first (authoritative), then the mirrored account document
// is patched so the mobile lockout check sees the new state. No transaction
// spans the two stores; a failed mirror write is surfaced, not swallowed.
type AccountService struct {
	docs store.DocumentStore
	rel  store.RelationalStore
}

func NewAccountService(docs store.DocumentStore, rel store.RelationalStore) *AccountService {
	return &AccountService{docs: docs, rel: rel}
}

// SetBlocked writes the block flag on the relational account, resets the
// attempt counter when unblocking, and pushes both into the account document.
// Returns PropagationPartialFailure when the relational write committed but
// the mirror patch failed.
func (s *AccountService) SetBlocked(ctx context.Context, accountID int64, blocked bool) error {
	if err := s.rel.SetAccountBlocked(ctx, accountID, blocked); err != nil {
		return err
	}

	fields := map[string]any{"isBlocked": blocked}
	if !blocked {
		if err := s.rel.ResetFailedAttempts(ctx, accountID); err != nil {
			return err
		}
		fields["failedAttempts"] = 0
	}

	account, err := s.rel.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.docs.PatchAccount(ctx, account.DocKey(), fields); err != nil {
		verb := "block"
		if !blocked {
			verb = "unblock"
		}
		return &PropagationPartialFailure{What: fmt.Sprintf("account %d %s", accountID, verb), Err: err}
	}

	log.Printf("[ACCOUNT] Account %d blocked=%v propagated to document %s", accountID, blocked, account.DocKey())
	return nil
}

// PushAccount mirrors the full relational account into the document store,
// creating or overwriting the document. Used after registration or a console
// profile edit.
func (s *AccountService) PushAccount(ctx context.Context, accountID int64) error {
	account, err := s.rel.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	doc := &models.AccountDoc{
		DocKey:         account.DocKey(),
		Email:          account.Email,
		Password:       account.Password,
		Nom:            account.Nom,
		Prenom:         account.Prenom,
		Role:           account.Role,
		IsBlocked:      account.IsBlocked,
		FailedAttempts: account.FailedAttempts,
	}
	if err := s.docs.PutAccount(ctx, doc); err != nil {
		return &PropagationPartialFailure{What: fmt.Sprintf("account %d mirror", accountID), Err: err}
	}

	log.Printf("[ACCOUNT] Account %d mirrored to document %s", accountID, doc.DocKey)
	return nil
}

// ListBlocked returns the blocked accounts for the console page.
func (s *AccountService) ListBlocked(ctx context.Context) ([]models.AccountRow, error) {
	return s.rel.ListBlockedAccounts(ctx)
}

// HandleBlock blocks an account
// @Summary Block an account in both stores
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Mirror write failed"
// @Router /accounts/{id}/block [post]
func (s *AccountService) HandleBlock(w http.ResponseWriter, r *http.Request) {
	s.handleSetBlocked(w, r, true)
}

// HandleUnblock unblocks an account and resets its attempts
// @Summary Unblock an account in both stores
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse "Mirror write failed"
// @Router /accounts/{id}/unblock [post]
func (s *AccountService) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	s.handleSetBlocked(w, r, false)
}

func (s *AccountService) handleSetBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	if err := s.SetBlocked(r.Context(), id, blocked); err != nil {
		var partial *PropagationPartialFailure
		switch {
		case errors.Is(err, store.ErrNotFound):
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		case errors.As(err, &partial):
			log.Printf("[ACCOUNT] Partial propagation for account %d: %v", id, err)
			SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
		default:
			log.Printf("[ACCOUNT] Block state update failed for %d: %v", id, err)
			SendErrorResponse(w, "Failed to update account", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "accountId": id, "isBlocked": blocked})
}

// HandlePushAccount mirrors an account to the document store
// @Summary Mirror a relational account into the document store
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{id}/push [post]
func (s *AccountService) HandlePushAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	if err := s.PushAccount(r.Context(), id); err != nil {
		var partial *PropagationPartialFailure
		switch {
		case errors.Is(err, store.ErrNotFound):
			SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		case errors.As(err, &partial):
			SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
		default:
			log.Printf("[ACCOUNT] Mirror failed for %d: %v", id, err)
			SendErrorResponse(w, "Failed to mirror account", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "accountId": id})
}

// HandleListBlocked lists blocked accounts
// @Summary List blocked accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AccountRow
// @Router /accounts/blocked [get]
func (s *AccountService) HandleListBlocked(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ListBlocked(r.Context())
	if err != nil {
		log.Printf("[ACCOUNT] Failed to list blocked accounts: %v", err)
		SendErrorResponse(w, "Failed to list blocked accounts", http.StatusInternalServerError, nil)
		return
	}
	if accounts == nil {
		accounts = []models.AccountRow{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}
