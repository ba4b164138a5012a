// AngelaMos | 2026
// entity.go

package batch

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Batch is a purchasable course. FeeAmount is in whole rupees.
type Batch struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Category   string    `db:"category"`
	ClassLevel string    `db:"class_level"`
	FeeAmount  int64     `db:"fee_amount"`
	Capacity   int       `db:"capacity"`
	Schedule   string    `db:"schedule"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (b *Batch) IsActive() bool {
	return b.Status == StatusActive
}
