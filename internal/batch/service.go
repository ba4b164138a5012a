// AngelaMos | 2026
// service.go

package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/examprep/internal/core"
)

// EnrollmentCounter reports seats taken per batch.
type EnrollmentCounter interface {
	CountActiveByBatch(ctx context.Context, batchIDs []int64) (map[int64]int, error)
}

type Service struct {
	repo    Repository
	counter EnrollmentCounter
	logger  *slog.Logger
}

func NewService(repo Repository, counter EnrollmentCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, counter: counter, logger: logger}
}

func (s *Service) Get(ctx context.Context, id int64) (*Batch, error) {
	return s.repo.GetByID(ctx, id)
}

// GetActive hides inactive and archived batches from the public catalogue.
func (s *Service) GetActive(ctx context.Context, id int64) (*Batch, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.IsActive() {
		return nil, fmt.Errorf("get batch: %w", core.ErrNotFound)
	}

	return b, nil
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]BatchResponse, int, error) {
	batches, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	counts := s.counts(ctx, batches)

	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, ToBatchResponse(&batches[i], counts[batches[i].ID]))
	}

	return out, total, nil
}

func (s *Service) Describe(ctx context.Context, b *Batch) BatchResponse {
	counts := s.counts(ctx, []Batch{*b})
	return ToBatchResponse(b, counts[b.ID])
}

// counts is display-only; a failure renders zero seats taken.
func (s *Service) counts(ctx context.Context, batches []Batch) map[int64]int {
	ids := make([]int64, 0, len(batches))
	for i := range batches {
		ids = append(ids, batches[i].ID)
	}

	counts, err := s.counter.CountActiveByBatch(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "enrollment count failed", "error", err)
		return map[int64]int{}
	}

	return counts
}

func (s *Service) Create(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	b := &Batch{
		Name:       req.Name,
		Category:   req.Category,
		ClassLevel: req.ClassLevel,
		FeeAmount:  req.FeeAmount,
		Capacity:   req.Capacity,
		Schedule:   req.Schedule,
		Status:     StatusActive,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Update(
	ctx context.Context,
	id int64,
	req UpdateBatchRequest,
) (*Batch, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Category != nil {
		b.Category = *req.Category
	}
	if req.ClassLevel != nil {
		b.ClassLevel = *req.ClassLevel
	}
	if req.FeeAmount != nil {
		b.FeeAmount = *req.FeeAmount
	}
	if req.Capacity != nil {
		b.Capacity = *req.Capacity
	}
	if req.Schedule != nil {
		b.Schedule = *req.Schedule
	}
	if req.Status != nil {
		b.Status = *req.Status
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
