package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/madio/backend/internal/models"
	"github.com/madio/backend/internal/store"
)

func accountRow(id int64, blocked bool, attempts int) *models.AccountRow {
	return &models.AccountRow{
		ID:             id,
		Email:          "user@example.com",
		Role:           models.RoleUser,
		IsBlocked:      blocked,
		FailedAttempts: attempts,
	}
}

func TestAccountService_SetBlocked(t *testing.T) {
	ctx := context.Background()

	t.Run("block writes relational first then patches the document", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(7), true).Return(nil)
		rel.On("GetAccount", mock.Anything, int64(7)).Return(accountRow(7, true, 3), nil)
		docs.On("PatchAccount", mock.Anything, "7", map[string]any{"isBlocked": true}).Return(nil)

		service := NewAccountService(docs, rel)
		assert.NoError(t, service.SetBlocked(ctx, 7, true))

		rel.AssertNotCalled(t, "ResetFailedAttempts", mock.Anything, mock.Anything)
		docs.AssertExpectations(t)
	})

	t.Run("unblock resets the attempt counter in both stores", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(7), false).Return(nil)
		rel.On("ResetFailedAttempts", mock.Anything, int64(7)).Return(nil)
		rel.On("GetAccount", mock.Anything, int64(7)).Return(accountRow(7, false, 0), nil)
		docs.On("PatchAccount", mock.Anything, "7",
			map[string]any{"isBlocked": false, "failedAttempts": 0}).Return(nil)

		service := NewAccountService(docs, rel)
		assert.NoError(t, service.SetBlocked(ctx, 7, false))

		rel.AssertExpectations(t)
		docs.AssertExpectations(t)
	})

	t.Run("unknown account surfaces not found", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(99), true).Return(store.ErrNotFound)

		service := NewAccountService(docs, rel)
		assert.ErrorIs(t, service.SetBlocked(ctx, 99, true), store.ErrNotFound)
		docs.AssertNotCalled(t, "PatchAccount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mirror patch failure keeps the relational write and reports partial", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(7), true).Return(nil)
		rel.On("GetAccount", mock.Anything, int64(7)).Return(accountRow(7, true, 3), nil)
		docs.On("PatchAccount", mock.Anything, "7", mock.Anything).Return(errors.New("i/o timeout"))

		service := NewAccountService(docs, rel)
		err := service.SetBlocked(ctx, 7, true)

		var partial *PropagationPartialFailure
		assert.True(t, errors.As(err, &partial))
		assert.Contains(t, err.Error(), "account 7 block")
	})
}

func TestAccountService_PushAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors the full relational account", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		row := accountRow(7, false, 0)
		row.Nom = "Rakoto"
		row.Prenom = "Jean"
		rel.On("GetAccount", mock.Anything, int64(7)).Return(row, nil)
		docs.On("PutAccount", mock.Anything, mock.MatchedBy(func(doc *models.AccountDoc) bool {
			return doc.DocKey == "7" && doc.Nom == "Rakoto" && doc.Role == models.RoleUser
		})).Return(nil)

		service := NewAccountService(docs, rel)
		assert.NoError(t, service.PushAccount(ctx, 7))
		docs.AssertExpectations(t)
	})

	t.Run("unknown account surfaces not found", func(t *testing.T) {
		rel := &MockRelationalStore{}
		rel.On("GetAccount", mock.Anything, int64(99)).Return(nil, store.ErrNotFound)

		service := NewAccountService(&MockDocumentStore{}, rel)
		assert.ErrorIs(t, service.PushAccount(ctx, 99), store.ErrNotFound)
	})
}

func TestAccountService_Handlers(t *testing.T) {
	request := func(method, target, id string) *http.Request {
		r := httptest.NewRequest(method, target, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("block responds with the new state", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(7), true).Return(nil)
		rel.On("GetAccount", mock.Anything, int64(7)).Return(accountRow(7, true, 3), nil)
		docs.On("PatchAccount", mock.Anything, "7", mock.Anything).Return(nil)

		service := NewAccountService(docs, rel)
		w := httptest.NewRecorder()
		service.HandleBlock(w, request("POST", "/accounts/7/block", "7"))

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, true, response["isBlocked"])
	})

	t.Run("unknown account maps to 404", func(t *testing.T) {
		rel := &MockRelationalStore{}
		rel.On("SetAccountBlocked", mock.Anything, int64(99), true).Return(store.ErrNotFound)

		service := NewAccountService(&MockDocumentStore{}, rel)
		w := httptest.NewRecorder()
		service.HandleBlock(w, request("POST", "/accounts/99/block", "99"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("partial propagation maps to 502", func(t *testing.T) {
		docs := &MockDocumentStore{}
		rel := &MockRelationalStore{}

		rel.On("SetAccountBlocked", mock.Anything, int64(7), true).Return(nil)
		rel.On("GetAccount", mock.Anything, int64(7)).Return(accountRow(7, true, 3), nil)
		docs.On("PatchAccount", mock.Anything, "7", mock.Anything).Return(errors.New("i/o timeout"))

		service := NewAccountService(docs, rel)
		w := httptest.NewRecorder()
		service.HandleBlock(w, request("POST", "/accounts/7/block", "7"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("non-numeric id maps to 400", func(t *testing.T) {
		service := NewAccountService(&MockDocumentStore{}, &MockRelationalStore{})
		w := httptest.NewRecorder()
		service.HandleBlock(w, request("POST", "/accounts/abc/block", "abc"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blocked list is never null", func(t *testing.T) {
		rel := &MockRelationalStore{}
		rel.On("ListBlockedAccounts", mock.Anything).Return(nil, nil)

		service := NewAccountService(&MockDocumentStore{}, rel)
		r := httptest.NewRequest("GET", "/accounts/blocked", nil)
		w := httptest.NewRecorder()
		service.HandleListBlocked(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
	})
}
