package account

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var postgresSchema string

// BalanceUpdate is the single atomic write a recharge performs. It applies
// only while the stored version still equals ExpectedVersion.
type BalanceUpdate struct {
	Limit            string
	CardLimitReached string
	ReloadingHistory string
	ExpectedVersion  int64
}

// Repository persists client records.
type Repository interface {
	// Get returns ErrNotFound when no record exists.
	Get(ctx context.Context, id string) (Record, error)
	// Create returns ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, record Record) error
	// UpdateBalance returns ErrVersionConflict when the version moved and
	// ErrNotFound when the record is gone.
	UpdateBalance(ctx context.Context, id string, update BalanceUpdate) error
	List(ctx context.Context) ([]Record, error)
}

// PostgresRepository stores client records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the clients table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply clients schema: %w", err)
	}
	return nil
}

const selectClient = `SELECT client_id, first_name, last_name, country, email, phone,
        spend, card_limit, card_limit_reached, reloading_history, version
    FROM clients`

// Get fetches a client record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRow(ctx, selectClient+` WHERE client_id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get client %s: %w", id, err)
	}
	return rec, nil
}

// Create inserts a record unless the id already exists.
func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	version := rec.Version
	if version == 0 {
		version = 1
	}
	tag, err := r.db.Exec(ctx, `INSERT INTO clients (client_id, first_name, last_name, country, email, phone,
            spend, card_limit, card_limit_reached, reloading_history, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (client_id) DO NOTHING`,
		rec.ClientID, rec.FirstName, rec.LastName, rec.Country, rec.Email, rec.Phone,
		rec.Spend, rec.Limit, rec.CardLimitReached, rec.ReloadingHistory, version)
	if err != nil {
		return fmt.Errorf("insert client %s: %w", rec.ClientID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// UpdateBalance writes limit, counter and history under a version check.
func (r *PostgresRepository) UpdateBalance(ctx context.Context, id string, u BalanceUpdate) error {
	tag, err := r.db.Exec(ctx, `UPDATE clients
        SET card_limit = $2, card_limit_reached = $3, reloading_history = $4,
            version = version + 1, updated_at = now()
        WHERE client_id = $1 AND version = $5`,
		id, u.Limit, u.CardLimitReached, u.ReloadingHistory, u.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update client %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE client_id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check client %s: %w", id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// List returns every client record ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, selectClient+` ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ClientID, &rec.FirstName, &rec.LastName, &rec.Country, &rec.Email, &rec.Phone,
		&rec.Spend, &rec.Limit, &rec.CardLimitReached, &rec.ReloadingHistory, &rec.Version)
	return rec, err
}
