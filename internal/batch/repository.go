// AngelaMos | 2026
// repository.go

package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id int64) (*Batch, error)
	Update(ctx context.Context, b *Batch) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListParams) ([]Batch, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const batchColumns = `
	id, name, category, class_level, fee_amount, capacity, schedule,
	status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, b *Batch) error {
	query := `
		INSERT INTO batches (
			name, category, class_level, fee_amount, capacity, schedule, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		b.Name,
		b.Category,
		b.ClassLevel,
		b.FeeAmount,
		b.Capacity,
		b.Schedule,
		b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

	var b Batch
	err := r.db.GetContext(ctx, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get batch: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}

	return &b, nil
}

func (r *repository) Update(ctx context.Context, b *Batch) error {
	query := `
		UPDATE batches
		SET name = $2, category = $3, class_level = $4, fee_amount = $5,
		    capacity = $6, schedule = $7, status = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &b.UpdatedAt, query,
		b.ID,
		b.Name,
		b.Category,
		b.ClassLevel,
		b.FeeAmount,
		b.Capacity,
		b.Schedule,
		b.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update batch: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	return nil
}

// Delete fails with ErrConflict while enrollments or payments still point
// at the batch; archive it instead.
func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete batch: batch has enrollments: %w", core.ErrConflict)
		}
		return fmt.Errorf("delete batch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete batch: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Batch, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.ActiveOnly {
		conditions = append(conditions, "status = 'active'")
	}

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.ClassLevel != "" {
		conditions = append(conditions, fmt.Sprintf("class_level = $%d", argIdx))
		args = append(args, params.ClassLevel)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM batches WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM batches
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		batchColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var batches []Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	return batches, total, nil
}
