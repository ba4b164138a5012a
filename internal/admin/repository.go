// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Repository interface {
	Overview(ctx context.Context) (*Overview, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Overview(ctx context.Context) (*Overview, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users
			  WHERE role = 'student' AND deleted_at IS NULL) AS students,
			(SELECT COUNT(*) FROM batches WHERE status = 'active') AS active_batches,
			(SELECT COUNT(*) FROM enrollments
			  WHERE status = 'active' AND payment_status = 'paid') AS active_enrollments,
			(SELECT COUNT(*) FROM enrollments WHERE status = 'pending') AS pending_enrollments,
			(SELECT COUNT(*) FROM payments WHERE status = 'success') AS payments_succeeded,
			(SELECT COUNT(*) FROM payments WHERE status = 'pending') AS payments_pending,
			(SELECT COUNT(*) FROM payments WHERE status = 'failed') AS payments_failed,
			(SELECT COALESCE(SUM(amount), 0) FROM payments
			  WHERE status = 'success') AS revenue`

	var o Overview
	if err := r.db.GetContext(ctx, &o, query); err != nil {
		return nil, fmt.Errorf("admin overview: %w", err)
	}

	return &o, nil
}
