package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/madio/backend/internal/models"
)

// RelationalStore is the minimal contract this core needs from the
// admin-authoritative store.
type RelationalStore interface {
	Ping(ctx context.Context) error
	GetAccount(ctx context.Context, id int64) (*models.AccountRow, error)
	FindAccountIDByEmail(ctx context.Context, email string) (int64, bool, error)
	SetAccountBlocked(ctx context.Context, id int64, blocked bool) error
	ResetFailedAttempts(ctx context.Context, id int64) error
	ListBlockedAccounts(ctx context.Context) ([]models.AccountRow, error)
	InsertReport(ctx context.Context, row *models.ReportRow) (int64, error)
	GetReport(ctx context.Context, id int64) (*models.ReportRow, error)
	FindReportIDByDocKey(ctx context.Context, docKey string) (int64, bool, error)
	CompanyExists(ctx context.Context, id int64) (bool, error)
	GetMaxAttempts(ctx context.Context) (int, error)
	SetMaxAttempts(ctx context.Context, value int) error
}

// PostgresStore implements RelationalStore over database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const accountColumns = "id, email, password, COALESCE(nom, ''), COALESCE(prenom, ''), role, is_blocked, failed_attempts"

func scanAccount(row *sql.Row) (*models.AccountRow, error) {
	var a models.AccountRow
	err := row.Scan(&a.ID, &a.Email, &a.Password, &a.Nom, &a.Prenom, &a.Role, &a.IsBlocked, &a.FailedAttempts)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*models.AccountRow, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE id = $1", id)
	return scanAccount(row)
}

func (s *PostgresStore) FindAccountIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *PostgresStore) SetAccountBlocked(ctx context.Context, id int64, blocked bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_blocked = $1 WHERE id = $2", blocked, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ResetFailedAttempts(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET failed_attempts = 0 WHERE id = $1", id)
	return err
}

func (s *PostgresStore) ListBlockedAccounts(ctx context.Context) ([]models.AccountRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE is_blocked = true ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.AccountRow
	for rows.Next() {
		var a models.AccountRow
		if err := rows.Scan(&a.ID, &a.Email, &a.Password, &a.Nom, &a.Prenom, &a.Role, &a.IsBlocked, &a.FailedAttempts); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) InsertReport(ctx context.Context, row *models.ReportRow) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO signalements (doc_key, description, latitude, longitude, status, surface_m2, budget, id_entreprise, user_id, date_signalement)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		row.DocKey, row.Description, row.Latitude, row.Longitude, row.Status,
		row.SurfaceM2, row.Budget, row.CompanyID, row.UserID, row.ReportedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert report %s: %w", row.DocKey, err)
	}
	return id, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id int64) (*models.ReportRow, error) {
	var r models.ReportRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_key, COALESCE(description, ''), latitude, longitude, status, surface_m2, budget, id_entreprise, user_id, date_signalement
		 FROM signalements WHERE id = $1`, id).
		Scan(&r.ID, &r.DocKey, &r.Description, &r.Latitude, &r.Longitude, &r.Status,
			&r.SurfaceM2, &r.Budget, &r.CompanyID, &r.UserID, &r.ReportedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) FindReportIDByDocKey(ctx context.Context, docKey string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM signalements WHERE doc_key = $1", docKey).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *PostgresStore) CompanyExists(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM entreprises WHERE id = $1", id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) GetMaxAttempts(ctx context.Context) (int, error) {
	var valeur string
	err := s.db.QueryRowContext(ctx,
		"SELECT valeur FROM configuration WHERE libelle = $1", models.ConfigMaxAttempts).Scan(&valeur)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valeur)
	if err != nil {
		return 0, fmt.Errorf("configuration %s holds %q: %w", models.ConfigMaxAttempts, valeur, err)
	}
	return value, nil
}

func (s *PostgresStore) SetMaxAttempts(ctx context.Context, value int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO configuration (libelle, valeur) VALUES ($1, $2)
		 ON CONFLICT (libelle) DO UPDATE SET valeur = EXCLUDED.valeur`,
		models.ConfigMaxAttempts, strconv.Itoa(value))
	return err
}
