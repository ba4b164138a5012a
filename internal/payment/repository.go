// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	SetOrderID(ctx context.Context, id, orderID string) error
	MarkSuccess(ctx context.Context, id, paymentID, signature string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, signature, reason string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]Payment, error)
	ListGaps(ctx context.Context, limit int) ([]Gap, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const paymentColumns = `
	id, user_id, batch_id, amount, currency, gateway_order_id,
	gateway_payment_id, gateway_signature, status, receipt, billing_info,
	failure_reason, paid_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, batch_id, amount, currency, status, receipt, billing_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID,
		p.UserID,
		p.BatchID,
		p.Amount,
		p.Currency,
		p.Status,
		p.Receipt,
		p.BillingInfo,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create payment: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return &p, nil
}

func (r *repository) SetOrderID(ctx context.Context, id, orderID string) error {
	query := `
		UPDATE payments
		SET gateway_order_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, orderID)
	if err != nil {
		return fmt.Errorf("set order id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set order id: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set order id: %w", core.ErrNotFound)
	}

	return nil
}

// MarkSuccess moves a pending payment to success. It reports false when the
// payment already left pending. A gateway payment id already stored on a
// different record is a conflict.
func (r *repository) MarkSuccess(
	ctx context.Context,
	id, paymentID, signature string,
	paidAt time.Time,
) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'success',
		    gateway_payment_id = $2,
		    gateway_signature = $3,
		    paid_at = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, paymentID, signature, paidAt)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return false, fmt.Errorf("mark payment success: gateway payment reused: %w", core.ErrConflict)
		}
		return false, fmt.Errorf("mark payment success: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment success: %w", err)
	}

	return rows == 1, nil
}

// MarkFailed leaves gateway_payment_id empty; storing an unverified payment
// id would let a forged callback claim it through the unique index.
func (r *repository) MarkFailed(
	ctx context.Context,
	id, signature, reason string,
) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed',
		    gateway_signature = $2,
		    failure_reason = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, id, signature, reason)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) ListForUser(ctx context.Context, userID string) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return payments, nil
}

func (r *repository) ListGaps(ctx context.Context, limit int) ([]Gap, error) {
	query := `
		SELECT p.id, p.user_id, p.batch_id, p.amount, p.gateway_payment_id,
		       p.paid_at,
		       COALESCE(e.status, 'none') AS enrollment_status,
		       COALESCE(e.payment_status, 'none') AS enrollment_payment_status
		FROM payments p
		LEFT JOIN enrollments e
		       ON e.student_id = p.user_id AND e.batch_id = p.batch_id
		WHERE p.status = 'success'
		  AND (e.id IS NULL OR e.status <> 'active' OR e.payment_status <> 'paid')
		ORDER BY p.paid_at ASC
		LIMIT $1`

	var gaps []Gap
	if err := r.db.SelectContext(ctx, &gaps, query, limit); err != nil {
		return nil, fmt.Errorf("list reconciliation gaps: %w", err)
	}

	return gaps, nil
}
