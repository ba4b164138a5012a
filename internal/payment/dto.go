// AngelaMos | 2026
// dto.go

package payment

import (
	"time"

	"github.com/carterperez-dev/examprep/internal/enrollment"
)

type OrderRequest struct {
	BatchID     int64       `json:"batchId"     validate:"required,gt=0"`
	Amount      int64       `json:"amount"      validate:"required,gt=0"`
	BillingInfo BillingInfo `json:"billingInfo"`
}

type OrderResponse struct {
	PaymentRecordID string `json:"paymentRecordId"`
	GatewayOrderID  string `json:"gatewayOrderId"`
	AmountMinor     int64  `json:"amountMinor"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
	KeyID           string `json:"keyId"`
}

type CallbackRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"   validate:"required,max=100"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required,max=100"`
	Signature        string `json:"signature"        validate:"required,hexadecimal,max=128"`
	PaymentRecordID  string `json:"paymentRecordId"  validate:"required,uuid"`
}

type CallbackResponse struct {
	OK              bool              `json:"ok"`
	PaymentRecordID string            `json:"paymentRecordId"`
	Enrollment      enrollment.Status `json:"enrollment"`
}

type PaymentResponse struct {
	ID               string     `json:"id"`
	BatchID          int64      `json:"batch_id"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	Receipt          string     `json:"receipt"`
	GatewayOrderID   string     `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		BatchID:          p.BatchID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		Receipt:          p.Receipt,
		GatewayOrderID:   p.OrderID(),
		GatewayPaymentID: p.PaymentID(),
		FailureReason:    p.FailureReason,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
	}
}

func ToPaymentResponseList(payments []Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, ToPaymentResponse(&payments[i]))
	}
	return out
}
