// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/examprep/internal/core"
)

// Repository stores refresh token sessions. A chain starts at Open and
// advances only through Rotate, which claims the previous token and inserts
// its successor in one statement.
type Repository interface {
	Open(ctx context.Context, s *Session) error
	ByHash(ctx context.Context, tokenHash string) (*Session, error)
	ByID(ctx context.Context, id string) (*Session, error)
	Rotate(ctx context.Context, prevID string, next *Session, at time.Time) (bool, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error)
	RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error)
	Active(ctx context.Context, userID string, now time.Time) ([]Session, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

const sessionColumns = `
	id, user_id, token_hash, family_id, portal, expires_at, created_at,
	used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Open(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, portal, expires_at,
			user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.FamilyID,
		s.Portal,
		s.ExpiresAt,
		s.UserAgent,
		s.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	return nil
}

func (r *repository) ByHash(ctx context.Context, tokenHash string) (*Session, error) {
	return r.one(ctx, `SELECT `+sessionColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
}

func (r *repository) ByID(ctx context.Context, id string) (*Session, error) {
	return r.one(ctx, `SELECT `+sessionColumns+` FROM refresh_tokens WHERE id = $1`, id)
}

func (r *repository) one(ctx context.Context, query string, arg any) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

// rotation is the part of a successor inherited from the claimed token.
type rotation struct {
	FamilyID  string    `db:"family_id"`
	Portal    Portal    `db:"portal"`
	CreatedAt time.Time `db:"created_at"`
}

// Rotate claims prevID and inserts next into the same family and portal.
// It reports false when prevID was already rotated, revoked or expired,
// which includes losing a race against a concurrent refresh.
func (r *repository) Rotate(
	ctx context.Context,
	prevID string,
	next *Session,
	at time.Time,
) (bool, error) {
	query := `
		WITH claimed AS (
			UPDATE refresh_tokens
			SET used_at = $8, replaced_by_id = $1
			WHERE id = $7
				AND user_id = $2
				AND used_at IS NULL
				AND revoked_at IS NULL
				AND expires_at > $8
			RETURNING family_id, portal
		)
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, portal, expires_at,
			user_agent, ip_address
		)
		SELECT $1, $2, $3, claimed.family_id, claimed.portal, $4, $5, $6
		FROM claimed
		RETURNING family_id, portal, created_at`

	var row rotation
	err := r.db.GetContext(ctx, &row, query,
		next.ID,
		next.UserID,
		next.TokenHash,
		next.ExpiresAt,
		next.UserAgent,
		next.IPAddress,
		prevID,
		at,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rotate session: %w", err)
	}

	next.FamilyID = row.FamilyID
	next.Portal = row.Portal
	next.CreatedAt = row.CreatedAt
	return true, nil
}

func (r *repository) Revoke(ctx context.Context, id string, at time.Time) error {
	n, err := r.revoke(ctx, `id = $2`, id, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("revoke session: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error) {
	return r.revoke(ctx, `family_id = $2`, familyID, at)
}

func (r *repository) RevokeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.revoke(ctx, `user_id = $2`, userID, at)
}

func (r *repository) revoke(ctx context.Context, where string, arg string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE ` + where + ` AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, at, arg)
	if err != nil {
		return 0, fmt.Errorf("revoke session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke session: %w", err)
	}
	return n, nil
}

// Active lists the live head of each of the user's chains.
func (r *repository) Active(ctx context.Context, userID string, now time.Time) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND used_at IS NULL
			AND expires_at > $2
		ORDER BY created_at DESC`

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID, now); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (r *repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
