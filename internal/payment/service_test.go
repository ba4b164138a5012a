// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/access"
	"github.com/carterperez-dev/examprep/internal/batch"
	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/enrollment"
)

const testSecret = "rzp_test_secret"

type memRepo struct {
	mu       sync.Mutex
	payments map[string]*Payment
}

func newMemRepo() *memRepo {
	return &memRepo{payments: make(map[string]*Payment)}
}

func (m *memRepo) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) SetOrderID(_ context.Context, id, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.payments[id].GatewayOrderID = &orderID
	return nil
}

func (m *memRepo) MarkSuccess(_ context.Context, id, paymentID, signature string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for otherID, other := range m.payments {
		if otherID != id && other.PaymentID() == paymentID {
			return false, fmt.Errorf("mark payment success: %w", core.ErrConflict)
		}
	}

	p := m.payments[id]
	if p.Status != StatusPending {
		return false, nil
	}
	p.Status = StatusSuccess
	p.GatewayPaymentID = &paymentID
	p.GatewaySignature = &signature
	p.PaidAt = &paidAt
	return true, nil
}

func (m *memRepo) MarkFailed(_ context.Context, id, signature, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.payments[id]
	if p.Status != StatusPending {
		return false, nil
	}
	p.Status = StatusFailed
	p.GatewaySignature = &signature
	p.FailureReason = reason
	return true, nil
}

func (m *memRepo) ListForUser(context.Context, string) ([]Payment, error) {
	return nil, nil
}

func (m *memRepo) ListGaps(context.Context, int) ([]Gap, error) {
	return nil, nil
}

type ledgerKey struct {
	student string
	batch   int64
}

type memLedger struct {
	mu       sync.Mutex
	rows     map[ledgerKey]*enrollment.Enrollment
	upserts  int
	upsertFn func() error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[ledgerKey]*enrollment.Enrollment)}
}

func (l *memLedger) GetStatus(_ context.Context, studentID string, batchID int64) (enrollment.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[ledgerKey{studentID, batchID}]
	if !ok {
		return enrollment.NotEnrolled(batchID), nil
	}
	return enrollment.StatusOf(row), nil
}

func (l *memLedger) EnsurePending(_ context.Context, studentID string, batchID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{studentID, batchID}
	if _, ok := l.rows[key]; !ok {
		l.rows[key] = &enrollment.Enrollment{
			StudentID:     studentID,
			BatchID:       batchID,
			Status:        enrollment.StatusPending,
			PaymentStatus: enrollment.PaymentUnpaid,
		}
	}
	return nil
}

func (l *memLedger) UpsertOnPaymentSuccess(
	_ context.Context,
	studentID string,
	batchID, amount int64,
	paymentID string,
) (*enrollment.Enrollment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.upsertFn != nil {
		if err := l.upsertFn(); err != nil {
			return nil, err
		}
	}

	l.upserts++
	key := ledgerKey{studentID, batchID}
	row, ok := l.rows[key]
	if !ok {
		row = &enrollment.Enrollment{StudentID: studentID, BatchID: batchID}
		l.rows[key] = row
	}
	row.Status = enrollment.StatusActive
	row.PaymentStatus = enrollment.PaymentPaid
	row.PaidAmount = amount
	row.PaymentID = &paymentID

	cp := *row
	return &cp, nil
}

type stubBatches map[int64]*batch.Batch

func (s stubBatches) GetActive(_ context.Context, id int64) (*batch.Batch, error) {
	b, ok := s[id]
	if !ok || !b.IsActive() {
		return nil, fmt.Errorf("get batch: %w", core.ErrNotFound)
	}
	return b, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	err    error
	orders []OrderParams
}

func (g *fakeGateway) CreateOrder(_ context.Context, params OrderParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return "", g.err
	}
	g.orders = append(g.orders, params)
	return fmt.Sprintf("order_%d", len(g.orders)), nil
}

type fixture struct {
	svc     *Service
	repo    *memRepo
	ledger  *memLedger
	gateway *fakeGateway
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		ledger:  newMemLedger(),
		gateway: &fakeGateway{},
	}
	f.svc = NewService(ServiceConfig{
		Repo: f.repo,
		Batches: stubBatches{
			7: {ID: 7, FeeAmount: 999, Status: batch.StatusActive},
			8: {ID: 8, FeeAmount: 500, Status: batch.StatusInactive},
		},
		Ledger:  f.ledger,
		Gateway: f.gateway,
		Config: config.GatewayConfig{
			KeyID:     "rzp_test_key",
			KeySecret: testSecret,
			Currency:  "INR",
		},
	})
	f.svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *fixture) order(t *testing.T, student string) *OrderResponse {
	t.Helper()

	resp, err := f.svc.CreateOrder(context.Background(), student, OrderRequest{
		BatchID:     7,
		Amount:      999,
		BillingInfo: BillingInfo{Name: "Asha"},
	})
	require.NoError(t, err)
	return resp
}

func callback(order *OrderResponse, paymentID string) CallbackRequest {
	return CallbackRequest{
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        sign(order.GatewayOrderID, paymentID, testSecret),
		PaymentRecordID:  order.PaymentRecordID,
	}
}

func canAccess(t *testing.T, ledger *memLedger, student string, batchID int64) bool {
	t.Helper()

	state, err := ledger.GetStatus(context.Background(), student, batchID)
	require.NoError(t, err)
	viewer := access.Viewer{Role: access.RoleStudent, StudentID: student}
	return access.CanAccess(viewer, access.Resource{BatchID: batchID}, state).Allowed
}

func TestPaymentUnlocksBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	require.NoError(t, f.ledger.EnsurePending(ctx, "s1", 7))
	assert.False(t, canAccess(t, f.ledger, "s1", 7))

	order := f.order(t, "s1")
	assert.Equal(t, int64(99900), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test_key", order.KeyID)
	require.Len(t, f.gateway.orders, 1)
	assert.Equal(t, order.Receipt, f.gateway.orders[0].Receipt)

	resp, err := f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_1"))
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.True(t, resp.Enrollment.IsEnrolled)

	row := f.ledger.rows[ledgerKey{"s1", 7}]
	assert.Equal(t, enrollment.StatusActive, row.Status)
	assert.Equal(t, enrollment.PaymentPaid, row.PaymentStatus)
	assert.Equal(t, int64(999), row.PaidAmount)
	assert.True(t, canAccess(t, f.ledger, "s1", 7))

	p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, p.Status)
	require.NotNil(t, p.PaidAt)
}

func TestVerifyCallback_BitFlippedSignature(t *testing.T) {
	ctx := context.Background()

	for _, bit := range []int{0, 3, 7, 130, 255} {
		t.Run(fmt.Sprintf("bit %d", bit), func(t *testing.T) {
			f := newFixture()
			order := f.order(t, "s1")

			req := callback(order, "pay_1")
			req.Signature = flipBit(t, req.Signature, bit)

			_, err := f.svc.VerifyCallback(ctx, "s1", req)
			assert.ErrorIs(t, err, core.ErrSignatureInvalid)

			assert.Zero(t, f.ledger.upserts)
			assert.False(t, canAccess(t, f.ledger, "s1", 7))

			p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, p.Status)
			assert.Empty(t, p.PaymentID())
		})
	}

	t.Run("replay on settled record", func(t *testing.T) {
		f := newFixture()
		order := f.order(t, "s1")

		_, err := f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_1"))
		require.NoError(t, err)

		for _, paymentID := range []string{"pay_1", "pay_2"} {
			req := callback(order, paymentID)
			req.Signature = flipBit(t, req.Signature, 0)

			_, err = f.svc.VerifyCallback(ctx, "s1", req)
			assert.ErrorIs(t, err, core.ErrSignatureInvalid)
		}

		assert.Equal(t, 1, f.ledger.upserts)
		assert.True(t, canAccess(t, f.ledger, "s1", 7))

		p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, p.Status)
		assert.Equal(t, "pay_1", p.PaymentID())
	})

	t.Run("replay on failed record", func(t *testing.T) {
		f := newFixture()
		order := f.order(t, "s1")

		bad := callback(order, "pay_1")
		bad.Signature = flipBit(t, bad.Signature, 3)
		_, err := f.svc.VerifyCallback(ctx, "s1", bad)
		require.ErrorIs(t, err, core.ErrSignatureInvalid)

		bad.Signature = flipBit(t, callback(order, "pay_1").Signature, 7)
		_, err = f.svc.VerifyCallback(ctx, "s1", bad)
		assert.ErrorIs(t, err, core.ErrSignatureInvalid)

		p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, p.Status)
		assert.Zero(t, f.ledger.upserts)
	})
}

func flipBit(t *testing.T, signature string, bit int) string {
	t.Helper()

	raw, err := hex.DecodeString(signature)
	require.NoError(t, err)
	raw[bit/8] ^= 1 << (bit % 8)
	return hex.EncodeToString(raw)
}

func TestVerifyCallback_RejectsForgeries(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(req *CallbackRequest)
	}{
		{"signed with another secret", func(req *CallbackRequest) {
			req.Signature = sign(req.GatewayOrderID, req.GatewayPaymentID, "other")
		}},
		{"signature for another payment", func(req *CallbackRequest) {
			req.Signature = sign(req.GatewayOrderID, "pay_other", testSecret)
		}},
		{"uppercase hex", func(req *CallbackRequest) {
			req.Signature = strings.ToUpper(req.Signature)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			order := f.order(t, "s1")

			req := callback(order, "pay_1")
			tt.mutate(&req)

			_, err := f.svc.VerifyCallback(ctx, "s1", req)
			assert.ErrorIs(t, err, core.ErrSignatureInvalid)
			assert.Zero(t, f.ledger.upserts)
		})
	}
}

func TestVerifyCallback_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")
	req := callback(order, "pay_1")

	first, err := f.svc.VerifyCallback(ctx, "s1", req)
	require.NoError(t, err)

	second, err := f.svc.VerifyCallback(ctx, "s1", req)
	require.NoError(t, err)

	assert.Equal(t, first.Enrollment, second.Enrollment)
	assert.Len(t, f.ledger.rows, 1)
	assert.Equal(t, int64(999), f.ledger.rows[ledgerKey{"s1", 7}].PaidAmount)
}

func TestVerifyCallback_ConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")
	req := callback(order, "pay_1")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.VerifyCallback(ctx, "s1", req)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, f.ledger.rows, 1)
}

func TestVerifyCallback_SettledWithDifferentPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")

	_, err := f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_1"))
	require.NoError(t, err)

	_, err = f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_2"))
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestVerifyCallback_AfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")

	bad := callback(order, "pay_1")
	bad.Signature = sign(order.GatewayOrderID, "pay_1", "wrong")
	_, err := f.svc.VerifyCallback(ctx, "s1", bad)
	require.ErrorIs(t, err, core.ErrSignatureInvalid)

	_, err = f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_1"))
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Zero(t, f.ledger.upserts)
}

func TestVerifyCallback_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")

	_, err := f.svc.VerifyCallback(ctx, "s2", callback(order, "pay_1"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	other := callback(order, "pay_1")
	other.GatewayOrderID = "order_999"
	other.Signature = sign(other.GatewayOrderID, "pay_1", testSecret)
	_, err = f.svc.VerifyCallback(ctx, "s1", other)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
}

func TestVerifyCallback_ReconciliationGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	order := f.order(t, "s1")

	f.ledger.upsertFn = func() error { return errors.New("db down") }

	_, err := f.svc.VerifyCallback(ctx, "s1", callback(order, "pay_1"))
	assert.ErrorIs(t, err, core.ErrReconciliationGap)
	assert.Equal(t, 500, core.ToAppError(err).StatusCode)

	p, err := f.repo.GetByID(ctx, order.PaymentRecordID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, p.Status, "payment stays captured")
	assert.False(t, canAccess(t, f.ledger, "s1", 7))

	f.ledger.upsertFn = nil

	resp, err := f.svc.Reconcile(ctx, order.PaymentRecordID)
	require.NoError(t, err)
	assert.True(t, resp.Enrollment.IsEnrolled)
	assert.True(t, canAccess(t, f.ledger, "s1", 7))
}

func TestReconcile_RequiresSuccessfulPayment(t *testing.T) {
	f := newFixture()
	order := f.order(t, "s1")

	_, err := f.svc.Reconcile(context.Background(), order.PaymentRecordID)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Zero(t, f.ledger.upserts)
}

func TestCreateOrder_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("already enrolled", func(t *testing.T) {
		f := newFixture()
		_, err := f.ledger.UpsertOnPaymentSuccess(ctx, "s1", 7, 999, "p0")
		require.NoError(t, err)

		_, err = f.svc.CreateOrder(ctx, "s1", OrderRequest{BatchID: 7, Amount: 999})
		assert.ErrorIs(t, err, core.ErrAlreadyEnrolled)
		assert.Empty(t, f.gateway.orders)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateOrder(ctx, "s1", OrderRequest{BatchID: 7, Amount: 1})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Empty(t, f.repo.payments)
	})

	t.Run("inactive batch", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateOrder(ctx, "s1", OrderRequest{BatchID: 8, Amount: 500})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestCreateOrder_GatewayUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.gateway.err = fmt.Errorf("razorpay create order: %w", context.DeadlineExceeded)

	_, err := f.svc.CreateOrder(ctx, "s1", OrderRequest{BatchID: 7, Amount: 999})
	require.ErrorIs(t, err, core.ErrGatewayUnavailable)
	assert.NotErrorIs(t, err, core.ErrSignatureInvalid)
	assert.Equal(t, 503, core.ToAppError(err).StatusCode)

	require.Len(t, f.repo.payments, 1)
	for _, p := range f.repo.payments {
		assert.Equal(t, StatusPending, p.Status)
		assert.Empty(t, p.OrderID())
	}

	state, err := f.ledger.GetStatus(ctx, "s1", 7)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPending, state.Status)
}

func TestCreateOrder_UniqueReceipts(t *testing.T) {
	f := newFixture()

	a := f.order(t, "s1")
	b := f.order(t, "s2")

	assert.NotEqual(t, a.Receipt, b.Receipt)
	assert.LessOrEqual(t, len(a.Receipt), 40)
}
