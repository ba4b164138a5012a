// AngelaMos | 2026
// repository.go

package content

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Outline(ctx context.Context, batchID int64) ([]Item, error)
	ListFull(ctx context.Context, batchID int64) ([]Item, error)
	Create(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Outline never selects media_url or body.
func (r *repository) Outline(ctx context.Context, batchID int64) ([]Item, error) {
	query := `
		SELECT id, batch_id, subject, chapter, title, kind, position,
		       created_at, updated_at
		FROM batch_contents
		WHERE batch_id = $1
		ORDER BY subject, chapter, position, id`

	var items []Item
	if err := r.db.SelectContext(ctx, &items, query, batchID); err != nil {
		return nil, fmt.Errorf("outline contents: %w", err)
	}

	return items, nil
}

func (r *repository) ListFull(ctx context.Context, batchID int64) ([]Item, error) {
	query := `
		SELECT id, batch_id, subject, chapter, title, kind, media_url, body,
		       position, created_at, updated_at
		FROM batch_contents
		WHERE batch_id = $1
		ORDER BY subject, chapter, position, id`

	var items []Item
	if err := r.db.SelectContext(ctx, &items, query, batchID); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}

	return items, nil
}

func (r *repository) Create(ctx context.Context, it *Item) error {
	query := `
		INSERT INTO batch_contents (
			batch_id, subject, chapter, title, kind, media_url, body, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		it.BatchID,
		it.Subject,
		it.Chapter,
		it.Title,
		it.Kind,
		it.MediaURL,
		it.Body,
		it.Position,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create content: batch: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create content: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM batch_contents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete content: %w", core.ErrNotFound)
	}

	return nil
}
