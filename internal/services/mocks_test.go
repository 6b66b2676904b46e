package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/madio/backend/internal/models"
)

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) FindAccountByEmail(ctx context.Context, email string) (*models.AccountDoc, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountDoc), args.Error(1)
}

func (m *MockDocumentStore) PutAccount(ctx context.Context, doc *models.AccountDoc) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) PatchAccount(ctx context.Context, docKey string, fields map[string]any) error {
	args := m.Called(ctx, docKey, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) FindUnsyncedReports(ctx context.Context) ([]models.ReportDoc, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportDoc), args.Error(1)
}

func (m *MockDocumentStore) PatchReport(ctx context.Context, docKey string, fields map[string]any) error {
	args := m.Called(ctx, docKey, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) GetConfig(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDocumentStore) SetConfig(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockRelationalStore struct {
	mock.Mock
}

func (m *MockRelationalStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRelationalStore) GetAccount(ctx context.Context, id int64) (*models.AccountRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountRow), args.Error(1)
}

func (m *MockRelationalStore) FindAccountIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRelationalStore) SetAccountBlocked(ctx context.Context, id int64, blocked bool) error {
	args := m.Called(ctx, id, blocked)
	return args.Error(0)
}

func (m *MockRelationalStore) ResetFailedAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRelationalStore) ListBlockedAccounts(ctx context.Context) ([]models.AccountRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AccountRow), args.Error(1)
}

func (m *MockRelationalStore) InsertReport(ctx context.Context, row *models.ReportRow) (int64, error) {
	args := m.Called(ctx, row)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRelationalStore) GetReport(ctx context.Context, id int64) (*models.ReportRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportRow), args.Error(1)
}

func (m *MockRelationalStore) FindReportIDByDocKey(ctx context.Context, docKey string) (int64, bool, error) {
	args := m.Called(ctx, docKey)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockRelationalStore) CompanyExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRelationalStore) GetMaxAttempts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRelationalStore) SetMaxAttempts(ctx context.Context, value int) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}
