// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/examprep/internal/batch"
	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/enrollment"
)

type BatchReader interface {
	GetActive(ctx context.Context, id int64) (*batch.Batch, error)
}

// Ledger is the part of the enrollment ledger payments drive.
type Ledger interface {
	GetStatus(ctx context.Context, studentID string, batchID int64) (enrollment.Status, error)
	EnsurePending(ctx context.Context, studentID string, batchID int64) error
	UpsertOnPaymentSuccess(
		ctx context.Context,
		studentID string,
		batchID int64,
		amount int64,
		paymentID string,
	) (*enrollment.Enrollment, error)
}

type ServiceConfig struct {
	Repo    Repository
	Batches BatchReader
	Ledger  Ledger
	Gateway Gateway
	Config  config.GatewayConfig
	Logger  *slog.Logger
}

type Service struct {
	repo    Repository
	batches BatchReader
	ledger  Ledger
	gateway Gateway
	cfg     config.GatewayConfig
	logger  *slog.Logger

	now func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:    cfg.Repo,
		batches: cfg.Batches,
		ledger:  cfg.Ledger,
		gateway: cfg.Gateway,
		cfg:     cfg.Config,
		logger:  logger,
		now:     time.Now,
	}
}

const (
	minorUnitsPerMajor = 100
	maxGapsListed      = 200
)

var (
	errAmountMismatch = core.NewAppError(
		core.ErrInvalidInput,
		"amount does not match the batch fee",
		http.StatusBadRequest,
		"AMOUNT_MISMATCH",
	)
	errOrderMismatch = core.NewAppError(
		core.ErrInvalidInput,
		"order does not match payment record",
		http.StatusBadRequest,
		"ORDER_MISMATCH",
	)
	errPaymentFailed = core.NewAppError(
		core.ErrConflict,
		"payment already failed, start a new order",
		http.StatusConflict,
		"PAYMENT_FAILED",
	)
	errPaymentSettled = core.NewAppError(
		core.ErrConflict,
		"payment already settled with a different transaction",
		http.StatusConflict,
		"PAYMENT_SETTLED",
	)
)

func receiptFor(id string) string {
	return "rcpt_" + strings.ReplaceAll(id, "-", "")
}

// CreateOrder opens a pending payment and asks the gateway for an order.
// A gateway failure leaves the payment pending without an order id; the
// caller may retry, which opens a new payment.
func (s *Service) CreateOrder(
	ctx context.Context,
	studentID string,
	req OrderRequest,
) (*OrderResponse, error) {
	ctx, span := core.StartSpan(ctx, "payment.CreateOrder",
		attribute.Int64("batch.id", req.BatchID),
	)
	defer span.End()

	b, err := s.batches.GetActive(ctx, req.BatchID)
	if err != nil {
		return nil, err
	}

	if req.Amount != b.FeeAmount {
		return nil, errAmountMismatch
	}

	status, err := s.ledger.GetStatus(ctx, studentID, req.BatchID)
	if err != nil {
		return nil, err
	}
	if status.IsEnrolled {
		return nil, fmt.Errorf("create order: %w", core.ErrAlreadyEnrolled)
	}

	if err := s.ledger.EnsurePending(ctx, studentID, req.BatchID); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	p := &Payment{
		ID:          id,
		UserID:      studentID,
		BatchID:     req.BatchID,
		Amount:      req.Amount,
		Currency:    s.cfg.Currency,
		Status:      StatusPending,
		Receipt:     receiptFor(id),
		BillingInfo: req.BillingInfo,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	amountMinor := req.Amount * minorUnitsPerMajor

	orderID, err := s.gateway.CreateOrder(ctx, OrderParams{
		AmountMinor: amountMinor,
		Currency:    p.Currency,
		Receipt:     p.Receipt,
		Notes: map[string]string{
			"payment_record_id": p.ID,
			"student_id":        studentID,
			"batch_id":          strconv.FormatInt(req.BatchID, 10),
		},
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		s.logger.WarnContext(ctx, "gateway order creation failed",
			"payment_id", p.ID,
			"batch_id", req.BatchID,
			"error", err,
		)
		return nil, fmt.Errorf("create order: %w: %w", core.ErrGatewayUnavailable, err)
	}

	if err := s.repo.SetOrderID(ctx, p.ID, orderID); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment order created",
		"payment_id", p.ID,
		"gateway_order_id", orderID,
		"batch_id", req.BatchID,
	)

	return &OrderResponse{
		PaymentRecordID: p.ID,
		GatewayOrderID:  orderID,
		AmountMinor:     amountMinor,
		Currency:        p.Currency,
		Receipt:         p.Receipt,
		KeyID:           s.cfg.KeyID,
	}, nil
}

// VerifyCallback checks the gateway signature and settles the payment. The
// gateway payment id is the idempotency key: replaying a settled callback
// succeeds without side effects.
func (s *Service) VerifyCallback(
	ctx context.Context,
	studentID string,
	req CallbackRequest,
) (*CallbackResponse, error) {
	ctx, span := core.StartSpan(ctx, "payment.VerifyCallback",
		attribute.String("payment.id", req.PaymentRecordID),
	)
	defer span.End()

	p, err := s.repo.GetByID(ctx, req.PaymentRecordID)
	if err != nil {
		return nil, err
	}
	if p.UserID != studentID {
		return nil, fmt.Errorf("verify payment: %w", core.ErrNotFound)
	}
	if p.OrderID() == "" || p.OrderID() != req.GatewayOrderID {
		return nil, errOrderMismatch
	}

	valid := VerifySignature(
		req.GatewayOrderID,
		req.GatewayPaymentID,
		req.Signature,
		s.cfg.KeySecret,
	)

	if !valid {
		return nil, s.reject(ctx, p, req)
	}

	switch p.Status {
	case StatusFailed:
		return nil, errPaymentFailed
	case StatusSuccess:
		if p.PaymentID() != req.GatewayPaymentID {
			return nil, errPaymentSettled
		}
		return s.settle(ctx, p)
	}

	paidAt := s.now()
	claimed, err := s.repo.MarkSuccess(ctx, p.ID, req.GatewayPaymentID, req.Signature, paidAt)
	if err != nil {
		return nil, err
	}

	if !claimed {
		// a concurrent callback got here first
		current, err := s.repo.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if current.Status != StatusSuccess || current.PaymentID() != req.GatewayPaymentID {
			return nil, errPaymentSettled
		}
		return s.settle(ctx, current)
	}

	p.Status = StatusSuccess
	p.GatewayPaymentID = &req.GatewayPaymentID
	p.PaidAt = &paidAt

	s.logger.InfoContext(ctx, "payment verified",
		"payment_id", p.ID,
		"gateway_payment_id", req.GatewayPaymentID,
	)

	return s.settle(ctx, p)
}

func (s *Service) reject(ctx context.Context, p *Payment, req CallbackRequest) error {
	core.AddSpanEvent(ctx, "payment.signature_mismatch",
		attribute.String("payment.id", p.ID),
		attribute.String("gateway.payment_id", req.GatewayPaymentID),
	)
	s.logger.WarnContext(ctx, "payment signature mismatch",
		"event", "security",
		"payment_id", p.ID,
		"payment_status", p.Status,
		"student_id", p.UserID,
		"batch_id", p.BatchID,
		"gateway_order_id", req.GatewayOrderID,
		"gateway_payment_id", req.GatewayPaymentID,
	)

	// settled and failed records are terminal
	if p.Status != StatusPending {
		return fmt.Errorf("verify payment: %w", core.ErrSignatureInvalid)
	}

	reason := "signature mismatch for gateway payment " + req.GatewayPaymentID
	if _, err := s.repo.MarkFailed(ctx, p.ID, req.Signature, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected payment",
			"payment_id", p.ID,
			"error", err,
		)
	}

	return fmt.Errorf("verify payment: %w", core.ErrSignatureInvalid)
}

// settle applies the ledger upsert for a successful payment. A failure here
// means money was taken without access being granted.
func (s *Service) settle(ctx context.Context, p *Payment) (*CallbackResponse, error) {
	e, err := s.ledger.UpsertOnPaymentSuccess(ctx, p.UserID, p.BatchID, p.Amount, p.ID)
	if err != nil {
		core.SetSpanError(ctx, err)
		core.AddSpanEvent(ctx, "payment.reconciliation_gap",
			attribute.String("payment.id", p.ID),
		)
		s.logger.ErrorContext(ctx, "reconciliation gap: payment captured, enrollment not updated",
			"payment_id", p.ID,
			"student_id", p.UserID,
			"batch_id", p.BatchID,
			"gateway_payment_id", p.PaymentID(),
			"error", err,
		)
		return nil, fmt.Errorf("settle payment %s: %w: %w", p.ID, core.ErrReconciliationGap, err)
	}

	return &CallbackResponse{
		OK:              true,
		PaymentRecordID: p.ID,
		Enrollment:      enrollment.StatusOf(e),
	}, nil
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Payment, error) {
	return s.repo.ListForUser(ctx, studentID)
}

func (s *Service) ListReconciliationGaps(ctx context.Context) ([]Gap, error) {
	return s.repo.ListGaps(ctx, maxGapsListed)
}

// Reconcile re-applies the ledger upsert for a successful payment. It is safe
// to call on a payment that is already reconciled.
func (s *Service) Reconcile(ctx context.Context, paymentID string) (*CallbackResponse, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if p.Status != StatusSuccess {
		return nil, fmt.Errorf("reconcile payment: status %s: %w", p.Status, core.ErrConflict)
	}

	resp, err := s.settle(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment reconciled",
		"payment_id", p.ID,
		"student_id", p.UserID,
		"batch_id", p.BatchID,
	)
	return resp, nil
}
