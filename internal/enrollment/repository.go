// AngelaMos | 2026
// repository.go

package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Get(ctx context.Context, studentID string, batchID int64) (*Enrollment, error)
	EnsurePending(ctx context.Context, e *Enrollment) error
	UpsertPaid(ctx context.Context, e *Enrollment) error
	CountActiveByBatch(ctx context.Context, batchIDs []int64) (map[int64]int, error)
	ListForStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	ListByBatch(
		ctx context.Context,
		batchID int64,
		limit, offset int,
	) ([]Enrollment, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const enrollmentColumns = `
	id, batch_id, student_id, status, payment_status, paid_amount,
	payment_id, enrolled_at, created_at, updated_at`

func (r *repository) Get(
	ctx context.Context,
	studentID string,
	batchID int64,
) (*Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1 AND batch_id = $2`

	var e Enrollment
	err := r.db.GetContext(ctx, &e, query, studentID, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get enrollment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	return &e, nil
}

// EnsurePending creates a pending row for a first payment attempt. An
// existing row, in any state, is left untouched.
func (r *repository) EnsurePending(ctx context.Context, e *Enrollment) error {
	query := `
		INSERT INTO enrollments (
			id, student_id, batch_id, status, payment_status
		) VALUES ($1, $2, $3, 'pending', 'unpaid')
		ON CONFLICT ON CONSTRAINT enrollments_student_batch_key DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.StudentID, e.BatchID)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("ensure pending enrollment: %w", core.ErrNotFound)
		}
		return fmt.Errorf("ensure pending enrollment: %w", err)
	}

	return nil
}

// UpsertPaid moves the (student, batch) row to active/paid in one statement.
// Re-running it with the same payment leaves the row unchanged.
func (r *repository) UpsertPaid(ctx context.Context, e *Enrollment) error {
	query := `
		INSERT INTO enrollments (
			id, student_id, batch_id, status, payment_status,
			paid_amount, payment_id, enrolled_at
		) VALUES ($1, $2, $3, 'active', 'paid', $4, $5, NOW())
		ON CONFLICT ON CONSTRAINT enrollments_student_batch_key DO UPDATE
		SET status = 'active',
		    payment_status = 'paid',
		    paid_amount = EXCLUDED.paid_amount,
		    payment_id = EXCLUDED.payment_id,
		    enrolled_at = COALESCE(enrollments.enrolled_at, EXCLUDED.enrolled_at),
		    updated_at = NOW()
		RETURNING ` + enrollmentColumns

	err := r.db.GetContext(ctx, e, query,
		e.ID,
		e.StudentID,
		e.BatchID,
		e.PaidAmount,
		e.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("upsert paid enrollment: %w", err)
	}

	return nil
}

func (r *repository) CountActiveByBatch(
	ctx context.Context,
	batchIDs []int64,
) (map[int64]int, error) {
	counts := make(map[int64]int, len(batchIDs))
	if len(batchIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT batch_id, COUNT(*) AS total
		FROM enrollments
		WHERE batch_id = ANY($1) AND status IN ('active', 'pending')
		GROUP BY batch_id`

	var rows []struct {
		BatchID int64 `db:"batch_id"`
		Total   int   `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, batchIDs); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}

	for _, row := range rows {
		counts[row.BatchID] = row.Total
	}

	return counts, nil
}

func (r *repository) ListForStudent(
	ctx context.Context,
	studentID string,
) ([]Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1
		ORDER BY created_at DESC`

	var items []Enrollment
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}

	return items, nil
}

func (r *repository) ListByBatch(
	ctx context.Context,
	batchID int64,
	limit, offset int,
) ([]Enrollment, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM enrollments WHERE batch_id = $1`, batchID); err != nil {
		return nil, 0, fmt.Errorf("count batch enrollments: %w", err)
	}

	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE batch_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var items []Enrollment
	if err := r.db.SelectContext(ctx, &items, query, batchID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list batch enrollments: %w", err)
	}

	return items, total, nil
}
