// AngelaMos | 2026
// entity.go

package enrollment

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusNone      = "none"
)

const (
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentNone    = "none"
)

// Enrollment is the ledger row for one (student, batch) pair.
type Enrollment struct {
	ID            string     `db:"id"`
	BatchID       int64      `db:"batch_id"`
	StudentID     string     `db:"student_id"`
	Status        string     `db:"status"`
	PaymentStatus string     `db:"payment_status"`
	PaidAmount    int64      `db:"paid_amount"`
	PaymentID     *string    `db:"payment_id"`
	EnrolledAt    *time.Time `db:"enrolled_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (e *Enrollment) IsEntitled() bool {
	return e.Status == StatusActive && e.PaymentStatus == PaymentPaid
}

// Status is the read model used by access decisions. IsEnrolled is true
// only for an active, paid row.
type Status struct {
	BatchID       int64  `json:"batch_id"`
	IsEnrolled    bool   `json:"is_enrolled"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

func NotEnrolled(batchID int64) Status {
	return Status{
		BatchID:       batchID,
		Status:        StatusNone,
		PaymentStatus: PaymentNone,
	}
}

func StatusOf(e *Enrollment) Status {
	return Status{
		BatchID:       e.BatchID,
		IsEnrolled:    e.IsEntitled(),
		Status:        e.Status,
		PaymentStatus: e.PaymentStatus,
	}
}
