// AngelaMos | 2026
// service.go

package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carterperez-dev/examprep/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetStatus always reads the ledger; a missing row is reported as not
// enrolled rather than as an error.
func (s *Service) GetStatus(
	ctx context.Context,
	studentID string,
	batchID int64,
) (Status, error) {
	if studentID == "" {
		return NotEnrolled(batchID), nil
	}

	e, err := s.repo.Get(ctx, studentID, batchID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return NotEnrolled(batchID), nil
		}
		return NotEnrolled(batchID), err
	}

	return StatusOf(e), nil
}

func (s *Service) Get(
	ctx context.Context,
	studentID string,
	batchID int64,
) (*Enrollment, error) {
	return s.repo.Get(ctx, studentID, batchID)
}

func (s *Service) EnsurePending(
	ctx context.Context,
	studentID string,
	batchID int64,
) error {
	return s.repo.EnsurePending(ctx, &Enrollment{
		ID:        uuid.New().String(),
		StudentID: studentID,
		BatchID:   batchID,
	})
}

// UpsertOnPaymentSuccess is the only path that grants an entitlement. It is
// called after a payment has been verified and never from a handler.
func (s *Service) UpsertOnPaymentSuccess(
	ctx context.Context,
	studentID string,
	batchID int64,
	amount int64,
	paymentID string,
) (*Enrollment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("upsert enrollment: missing payment id: %w", core.ErrInvalidInput)
	}
	if studentID == "" || batchID <= 0 {
		return nil, fmt.Errorf("upsert enrollment: %w", core.ErrInvalidInput)
	}

	e := &Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		BatchID:    batchID,
		PaidAmount: amount,
		PaymentID:  &paymentID,
	}

	if err := s.repo.UpsertPaid(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) CountActiveByBatch(
	ctx context.Context,
	batchIDs []int64,
) (map[int64]int, error) {
	return s.repo.CountActiveByBatch(ctx, batchIDs)
}

func (s *Service) ListForStudent(
	ctx context.Context,
	studentID string,
) ([]Enrollment, error) {
	if studentID == "" {
		return nil, fmt.Errorf("list enrollments: %w", core.ErrUnauthorized)
	}
	return s.repo.ListForStudent(ctx, studentID)
}

func (s *Service) ListByBatch(
	ctx context.Context,
	batchID int64,
	page, pageSize int,
) ([]Enrollment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListByBatch(ctx, batchID, pageSize, (page-1)*pageSize)
}
