// Package payment settles orders against an external payment processor and
// validates card input.
package payment

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookbazaar/internal/domain/order"
)

// ErrDeclined is returned by a gateway that refused the charge.
var ErrDeclined = errors.New("payment declined")

// Charge is a settlement request sent to a gateway.
type Charge struct {
	OrderID string
	Amount  decimal.Decimal
	Method  order.PaymentMethod
}

// Gateway settles charges. Implementations must honour ctx cancellation.
type Gateway interface {
	Charge(ctx context.Context, c Charge) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, c Charge) error

// Charge calls f.
func (f GatewayFunc) Charge(ctx context.Context, c Charge) error {
	return f(ctx, c)
}

// MockGateway simulates a processor: it waits for Delay, then declines with
// probability FailureRate, independently per attempt.
type MockGateway struct {
	delay       time.Duration
	failureRate float64
	roll        func() float64
}

// MockOption customises a MockGateway.
type MockOption func(*MockGateway)

// WithRoll replaces the random source. roll must return values in [0, 1).
func WithRoll(roll func() float64) MockOption {
	return func(g *MockGateway) { g.roll = roll }
}

// NewMockGateway creates a MockGateway.
func NewMockGateway(delay time.Duration, failureRate float64, opts ...MockOption) *MockGateway {
	g := &MockGateway{
		delay:       delay,
		failureRate: failureRate,
		roll:        rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Charge implements Gateway.
func (g *MockGateway) Charge(ctx context.Context, _ Charge) error {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if g.roll() < g.failureRate {
		return ErrDeclined
	}
	return nil
}
