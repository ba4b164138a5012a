// AngelaMos | 2026
// access.go

package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/examprep/internal/enrollment"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

const (
	RoleAdmin   = middleware.RoleAdmin
	RoleStudent = middleware.RoleStudent
	RoleGuest   = ""
)

const (
	ReasonAdmin             = "admin"
	ReasonEnrolled          = "enrolled"
	ReasonNotEnrolled       = "not_enrolled"
	ReasonPaymentDue        = "payment_pending"
	ReasonUnauthenticated   = "unauthenticated"
	ReasonUnknownRole       = "unknown_role"
	ReasonLedgerUnavailable = "ledger_unavailable"
)

type Viewer struct {
	Role      string
	StudentID string
}

type Resource struct {
	BatchID int64
}

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// CanAccess is the single rule for batch content. Admins see everything;
// students only see batches they hold an active, paid enrollment for.
// state must be the ledger row for (viewer, resource).
func CanAccess(viewer Viewer, resource Resource, state enrollment.Status) Decision {
	switch viewer.Role {
	case RoleAdmin:
		return Decision{Allowed: true, Reason: ReasonAdmin}
	case RoleStudent:
		if viewer.StudentID == "" {
			return Decision{Reason: ReasonUnauthenticated}
		}
		if state.BatchID != resource.BatchID {
			return Decision{Reason: ReasonNotEnrolled}
		}
		if state.IsEnrolled {
			return Decision{Allowed: true, Reason: ReasonEnrolled}
		}
		if state.Status == enrollment.StatusPending {
			return Decision{Reason: ReasonPaymentDue}
		}
		return Decision{Reason: ReasonNotEnrolled}
	case RoleGuest:
		return Decision{Reason: ReasonUnauthenticated}
	default:
		return Decision{Reason: ReasonUnknownRole}
	}
}

// Ledger is the read side of the enrollment ledger.
type Ledger interface {
	GetStatus(ctx context.Context, studentID string, batchID int64) (enrollment.Status, error)
}

type Gate struct {
	ledger Ledger
	logger *slog.Logger
}

func NewGate(ledger Ledger, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{ledger: ledger, logger: logger}
}

// Check reads the ledger on every call. A ledger error denies access and is
// returned alongside the denial.
func (g *Gate) Check(ctx context.Context, viewer Viewer, resource Resource) (Decision, error) {
	state := enrollment.NotEnrolled(resource.BatchID)

	if viewer.Role == RoleStudent && viewer.StudentID != "" {
		var err error
		state, err = g.ledger.GetStatus(ctx, viewer.StudentID, resource.BatchID)
		if err != nil {
			g.logger.ErrorContext(ctx, "access check failed closed",
				"student_id", viewer.StudentID,
				"batch_id", resource.BatchID,
				"error", err,
			)
			return Decision{Reason: ReasonLedgerUnavailable}, fmt.Errorf("access check: %w", err)
		}
	}

	return CanAccess(viewer, resource, state), nil
}

// ViewerFromContext builds the viewer from authentication middleware values.
// Requests without a verified token are guests.
func ViewerFromContext(ctx context.Context) Viewer {
	claims := middleware.GetClaims(ctx)
	if claims == nil || claims.UserID == "" {
		return Viewer{Role: RoleGuest}
	}

	return Viewer{Role: claims.Role, StudentID: claims.UserID}
}
