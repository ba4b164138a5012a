// AngelaMos | 2026
// dto.go

package enrollment

import (
	"time"
)

type EnrollmentResponse struct {
	ID            string     `json:"id"`
	BatchID       int64      `json:"batch_id"`
	StudentID     string     `json:"student_id"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	PaidAmount    int64      `json:"paid_amount"`
	EnrolledAt    *time.Time `json:"enrolled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func ToEnrollmentResponse(e *Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:            e.ID,
		BatchID:       e.BatchID,
		StudentID:     e.StudentID,
		Status:        e.Status,
		PaymentStatus: e.PaymentStatus,
		PaidAmount:    e.PaidAmount,
		EnrolledAt:    e.EnrolledAt,
		CreatedAt:     e.CreatedAt,
	}
}

func ToEnrollmentResponseList(items []Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToEnrollmentResponse(&items[i]))
	}
	return out
}
