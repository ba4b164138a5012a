// AngelaMos | 2026
// gateway.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/carterperez-dev/examprep/internal/config"
)

type OrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Gateway creates orders with the payment processor. Callback signatures are
// verified locally and never delegated to it.
type Gateway interface {
	CreateOrder(ctx context.Context, params OrderParams) (string, error)
}

var errMissingOrderID = errors.New("gateway response missing order id")

type RazorpayGateway struct {
	timeout time.Duration
	create  func(data map[string]interface{}) (map[string]interface{}, error)
}

func NewRazorpayGateway(cfg config.GatewayConfig) *RazorpayGateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	if secs := timeoutSeconds(cfg.Timeout); secs > 0 {
		client.SetTimeout(secs)
	}

	return &RazorpayGateway{
		timeout: cfg.Timeout,
		create: func(data map[string]interface{}) (map[string]interface{}, error) {
			return client.Order.Create(data, nil)
		},
	}
}

// timeoutSeconds converts the configured timeout to the whole seconds the SDK
// http client accepts, rounding up.
func timeoutSeconds(d time.Duration) int16 {
	if d <= 0 {
		return 0
	}
	secs := (d + time.Second - 1) / time.Second
	if secs > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(secs)
}

// CreateOrder bounds the SDK call by the configured timeout. The SDK http
// client enforces the same limit, so a call abandoned on ctx expiry ends on
// its own shortly after.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, params OrderParams) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	notes := make(map[string]interface{}, len(params.Notes))
	for k, v := range params.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   params.AmountMinor,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    notes,
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)

	go func() {
		body, err := g.create(data)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("razorpay create order: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("razorpay create order: %w", res.err)
		}
		id, ok := res.body["id"].(string)
		if !ok || id == "" {
			return "", fmt.Errorf("razorpay create order: %w", errMissingOrderID)
		}
		return id, nil
	}
}
