// AngelaMos | 2026
// dto.go

package batch

import (
	"time"
)

type CreateBatchRequest struct {
	Name       string `json:"name"        validate:"required,min=1,max=200"`
	Category   string `json:"category"    validate:"required,oneof=JEE NEET general"`
	ClassLevel string `json:"class_type"  validate:"max=32"`
	FeeAmount  int64  `json:"fee_amount"  validate:"min=0"`
	Capacity   int    `json:"capacity"    validate:"min=0"`
	Schedule   string `json:"schedule"    validate:"max=500"`
}

type UpdateBatchRequest struct {
	Name       *string `json:"name,omitempty"       validate:"omitempty,min=1,max=200"`
	Category   *string `json:"category,omitempty"   validate:"omitempty,oneof=JEE NEET general"`
	ClassLevel *string `json:"class_type,omitempty" validate:"omitempty,max=32"`
	FeeAmount  *int64  `json:"fee_amount,omitempty" validate:"omitempty,min=0"`
	Capacity   *int    `json:"capacity,omitempty"   validate:"omitempty,min=0"`
	Schedule   *string `json:"schedule,omitempty"   validate:"omitempty,max=500"`
	Status     *string `json:"status,omitempty"     validate:"omitempty,oneof=active inactive archived"`
}

type ListParams struct {
	Page       int
	PageSize   int
	Category   string
	ClassLevel string
	ActiveOnly bool
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type BatchResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	ClassLevel      string    `json:"class_type"`
	FeeAmount       int64     `json:"fee_amount"`
	Capacity        int       `json:"capacity"`
	Schedule        string    `json:"schedule"`
	Status          string    `json:"status"`
	EnrollmentCount int       `json:"enrollment_count"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToBatchResponse(b *Batch, enrolled int) BatchResponse {
	return BatchResponse{
		ID:              b.ID,
		Name:            b.Name,
		Category:        b.Category,
		ClassLevel:      b.ClassLevel,
		FeeAmount:       b.FeeAmount,
		Capacity:        b.Capacity,
		Schedule:        b.Schedule,
		Status:          b.Status,
		EnrollmentCount: enrolled,
		CreatedAt:       b.CreatedAt,
	}
}
