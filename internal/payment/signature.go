// AngelaMos | 2026
// signature.go

package payment

import (
	"github.com/razorpay/razorpay-go/utils"
)

// VerifySignature checks a checkout callback signature: hex HMAC-SHA256 of
// orderID|paymentID keyed with the API secret.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}

	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, secret)
}
