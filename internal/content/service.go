// AngelaMos | 2026
// service.go

package content

import (
	"context"
	"log/slog"

	"github.com/carterperez-dev/examprep/internal/access"
	"github.com/carterperez-dev/examprep/internal/batch"
	"github.com/carterperez-dev/examprep/internal/core"
)

type BatchReader interface {
	Get(ctx context.Context, id int64) (*batch.Batch, error)
}

type AccessGate interface {
	Check(ctx context.Context, viewer access.Viewer, resource access.Resource) (access.Decision, error)
}

type Service struct {
	repo    Repository
	batches BatchReader
	gate    AccessGate
	logger  *slog.Logger
}

func NewService(
	repo Repository,
	batches BatchReader,
	gate AccessGate,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, batches: batches, gate: gate, logger: logger}
}

// List returns the full contents only when the gate allows the viewer.
// Everyone else, including viewers whose ledger read failed, gets the
// outline with Locked set.
func (s *Service) List(
	ctx context.Context,
	viewer access.Viewer,
	batchID int64,
) (*ListResponse, error) {
	b, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if !b.IsActive() && viewer.Role != access.RoleAdmin {
		return nil, core.NotFoundError("batch")
	}

	decision, err := s.gate.Check(ctx, viewer, access.Resource{BatchID: batchID})
	if err != nil {
		s.logger.WarnContext(ctx, "serving outline after failed access check",
			"batch_id", batchID,
			"error", err,
		)
	}

	resp := &ListResponse{
		BatchID: batchID,
		Locked:  !decision.Allowed,
		Reason:  decision.Reason,
	}

	var items []Item
	if decision.Allowed {
		items, err = s.repo.ListFull(ctx, batchID)
	} else {
		items, err = s.repo.Outline(ctx, batchID)
	}
	if err != nil {
		return nil, err
	}

	resp.Items = ToItemResponseList(items)
	return resp, nil
}

func (s *Service) Create(
	ctx context.Context,
	batchID int64,
	req CreateItemRequest,
) (*Item, error) {
	if _, err := s.batches.Get(ctx, batchID); err != nil {
		return nil, err
	}

	it := &Item{
		BatchID:  batchID,
		Subject:  req.Subject,
		Chapter:  req.Chapter,
		Title:    req.Title,
		Kind:     req.Kind,
		MediaURL: req.MediaURL,
		Body:     req.Body,
		Position: req.Position,
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	return it, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
