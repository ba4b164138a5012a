// AngelaMos | 2026
// entity.go

package payment

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Payment is one attempt to pay for a batch. It moves from pending to
// success or failed exactly once.
type Payment struct {
	ID               string      `db:"id"`
	UserID           string      `db:"user_id"`
	BatchID          int64       `db:"batch_id"`
	Amount           int64       `db:"amount"`
	Currency         string      `db:"currency"`
	GatewayOrderID   *string     `db:"gateway_order_id"`
	GatewayPaymentID *string     `db:"gateway_payment_id"`
	GatewaySignature *string     `db:"gateway_signature"`
	Status           string      `db:"status"`
	Receipt          string      `db:"receipt"`
	BillingInfo      BillingInfo `db:"billing_info"`
	FailureReason    string      `db:"failure_reason"`
	PaidAt           *time.Time  `db:"paid_at"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (p *Payment) OrderID() string {
	if p.GatewayOrderID == nil {
		return ""
	}
	return *p.GatewayOrderID
}

func (p *Payment) PaymentID() string {
	if p.GatewayPaymentID == nil {
		return ""
	}
	return *p.GatewayPaymentID
}

type BillingInfo struct {
	Name    string `json:"name"              validate:"max=100"`
	Email   string `json:"email,omitempty"   validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"   validate:"max=20"`
	Address string `json:"address,omitempty" validate:"max=300"`
	City    string `json:"city,omitempty"    validate:"max=100"`
	State   string `json:"state,omitempty"   validate:"max=100"`
	Pincode string `json:"pincode,omitempty" validate:"max=10"`
}

func (b BillingInfo) Value() (driver.Value, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode billing info: %w", err)
	}
	return raw, nil
}

func (b *BillingInfo) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*b = BillingInfo{}
		return nil
	default:
		return fmt.Errorf("scan billing info: unsupported type %T", src)
	}

	if err := json.Unmarshal(raw, b); err != nil {
		return fmt.Errorf("decode billing info: %w", err)
	}
	return nil
}

// Gap is a successful payment whose enrollment is not active and paid.
type Gap struct {
	PaymentID               string     `db:"id"                        json:"payment_record_id"`
	StudentID               string     `db:"user_id"                   json:"student_id"`
	BatchID                 int64      `db:"batch_id"                  json:"batch_id"`
	Amount                  int64      `db:"amount"                    json:"amount"`
	GatewayPaymentID        *string    `db:"gateway_payment_id"        json:"gateway_payment_id"`
	PaidAt                  *time.Time `db:"paid_at"                   json:"paid_at"`
	EnrollmentStatus        string     `db:"enrollment_status"         json:"enrollment_status"`
	EnrollmentPaymentStatus string     `db:"enrollment_payment_status" json:"enrollment_payment_status"`
}
