// AngelaMos | 2026
// repository.go

package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Replace(ctx context.Context, rec *Record) error
	Latest(ctx context.Context, email, purpose string) (*Record, error)
	LatestUnverified(ctx context.Context, email, purpose string) (*Record, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const recordColumns = `
	id, email, code_hash, purpose, payload, issued_at, expires_at,
	verified_at, attempts`

// Replace drops any live challenge for the same (email, purpose) and stores
// rec in its place. A concurrent issue for the same email loses on the
// partial unique index.
func (r *repository) Replace(ctx context.Context, rec *Record) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM otp_records
			WHERE email = $1 AND purpose = $2 AND verified_at IS NULL`,
			rec.Email, rec.Purpose,
		)
		if err != nil {
			return fmt.Errorf("delete live otp: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO otp_records (
				id, email, code_hash, purpose, payload, issued_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID,
			rec.Email,
			rec.CodeHash,
			rec.Purpose,
			rec.Payload,
			rec.IssuedAt,
			rec.ExpiresAt,
		)
		if err != nil {
			if core.IsUniqueViolation(err) {
				return fmt.Errorf("insert otp: %w", core.ErrConflict)
			}
			return fmt.Errorf("insert otp: %w", err)
		}

		return nil
	})
}

func (r *repository) Latest(
	ctx context.Context,
	email, purpose string,
) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM otp_records
		WHERE email = $1 AND purpose = $2
		ORDER BY issued_at DESC
		LIMIT 1`

	return r.getOne(ctx, "latest otp", query, email, purpose)
}

func (r *repository) LatestUnverified(
	ctx context.Context,
	email, purpose string,
) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM otp_records
		WHERE email = $1 AND purpose = $2 AND verified_at IS NULL
		ORDER BY issued_at DESC
		LIMIT 1`

	return r.getOne(ctx, "latest unverified otp", query, email, purpose)
}

func (r *repository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE otp_records
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`

	var attempts int
	err := r.db.GetContext(ctx, &attempts, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment otp attempts: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}

	return attempts, nil
}

// Claim marks the record verified. Only one caller can win; everyone else
// sees false.
func (r *repository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE otp_records
		SET verified_at = $2
		WHERE id = $1 AND verified_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("claim otp: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim otp: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_records WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}

	return rows, nil
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	args ...any,
) (*Record, error) {
	var rec Record
	err := r.db.GetContext(ctx, &rec, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rec, nil
}
