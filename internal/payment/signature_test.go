// AngelaMos | 2026
// signature_test.go

package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

// sign produces the signature the checkout widget attaches to a callback.
func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	sig := sign("order_1", "pay_1", "secret")

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		secret    string
		want      bool
	}{
		{"valid", "order_1", "pay_1", sig, "secret", true},
		{"other payment", "order_1", "pay_2", sig, "secret", false},
		{"other order", "order_2", "pay_1", sig, "secret", false},
		{"other secret", "order_1", "pay_1", sig, "other", false},
		{"truncated", "order_1", "pay_1", sig[:63], "secret", false},
		{"empty signature", "order_1", "pay_1", "", "secret", false},
		{"empty ids", "", "", sign("", "", "secret"), "secret", false},
		{"empty secret", "order_1", "pay_1", sign("order_1", "pay_1", ""), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature(tt.orderID, tt.paymentID, tt.signature, tt.secret)
			assert.Equal(t, tt.want, got)
		})
	}
}
