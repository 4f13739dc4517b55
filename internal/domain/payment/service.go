package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/domain/order"
)

const instrumentationName = "github.com/xenking/bookbazaar/internal/domain/payment"

// maxIDAttempts bounds retries when a generated transaction id collides with
// one already stored.
const maxIDAttempts = 3

var (
	// ErrPaymentFailed is returned when settlement did not complete. The order
	// is unchanged and the caller may retry.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrCashOnDelivery is returned for orders paid in cash on delivery.
	ErrCashOnDelivery = errors.New("cash on delivery orders are settled on delivery")
)

// ProcessRequest asks to settle an order.
type ProcessRequest struct {
	OrderID string
	// Method is the declared payment method; empty means the order's own.
	Method string
}

// Result is the outcome of a settlement.
type Result struct {
	Order         *order.Order
	TransactionID string
	// Replayed is true when the order had already been paid and nothing
	// changed.
	Replayed bool
}

// Service settles orders through a Gateway.
type Service struct {
	orders  order.Repository
	gateway Gateway
	ids     *TransactionIDs
	timeout time.Duration
	now     func() time.Time

	tracer   trace.Tracer
	attempts metric.Int64Counter
}

// Option customises a Service.
type Option func(*Service)

// WithTimeout bounds each gateway call. A timed out call leaves the order
// unpaid.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTransactionIDs overrides the transaction id generator.
func WithTransactionIDs(ids *TransactionIDs) Option {
	return func(s *Service) { s.ids = ids }
}

// WithTelemetry sets the tracer and meter providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(instrumentationName)
		if c, err := mp.Meter(instrumentationName).Int64Counter("bazaar.payments.attempts",
			metric.WithDescription("Settlement attempts by outcome"),
		); err == nil {
			s.attempts = c
		}
	}
}

// NewService creates a payment Service.
func NewService(orders order.Repository, gateway Gateway, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		gateway:  gateway,
		timeout:  10 * time.Second,
		now:      time.Now,
		tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		attempts: metricnoop.Int64Counter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewTransactionIDs(0)
	}
	return s
}

// Process settles an order owned by the caller. The order is marked paid at
// most once: settling an already paid order returns the recorded
// transaction without contacting the gateway. A declined, cancelled or timed
// out charge leaves the order unmodified.
//
// The gateway call happens outside the order lock; the paid flag is
// re-checked under the lock before it is written.
func (s *Service) Process(ctx context.Context, who auth.Identity, req ProcessRequest) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "payment.Process")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if who.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if strings.TrimSpace(req.OrderID) == "" {
		verr := &order.ValidationError{}
		verr.Add("orderId", "Order id is required")
		return nil, verr
	}

	o, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(who, o); err != nil {
		return nil, err
	}
	if o.IsPaid {
		return replayed(o), nil
	}
	if o.Status == order.StatusCancelled {
		return nil, &order.InvalidTransitionError{From: o.Status, To: o.Status, Reason: "cannot pay for a cancelled order"}
	}

	method := o.PaymentMethod
	if strings.TrimSpace(req.Method) != "" {
		m, ok := order.ParsePaymentMethod(req.Method)
		if !ok {
			verr := &order.ValidationError{}
			verr.Add("paymentMethod", "Payment method must be one of COD, Card, UPI, NetBanking")
			return nil, verr
		}
		method = m
	}
	if method == order.PaymentCOD {
		return nil, ErrCashOnDelivery
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID), zap.String("user_id", who.UserID))

	chargeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.gateway.Charge(chargeCtx, Charge{OrderID: o.ID, Amount: o.TotalAmount, Method: method})
	cancel()
	if err != nil {
		outcome := "declined"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			outcome = "timeout"
		}
		s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		lg.Warn("Payment not settled", zap.String("outcome", outcome), zap.Error(err))
		return nil, errors.Wrap(ErrPaymentFailed, outcome)
	}

	for attempt := 1; ; attempt++ {
		txID := s.ids.Next()
		paid, err := s.orders.Update(ctx, o.ID, func(_ context.Context, o *order.Order) error {
			return o.MarkPaid(order.PaymentDetails{
				TransactionID: txID,
				Method:        method,
				Status:        order.PaymentSucceeded,
			}, s.now())
		})
		switch {
		case err == nil:
			s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
			lg.Info("Payment settled", zap.String("transaction_id", txID))
			return &Result{Order: paid, TransactionID: txID}, nil
		case errors.Is(err, order.ErrAlreadyPaid):
			current, getErr := s.orders.Get(ctx, o.ID)
			if getErr != nil {
				return nil, getErr
			}
			s.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "replayed")))
			return replayed(current), nil
		case errors.Is(err, order.ErrDuplicateTransaction) && attempt < maxIDAttempts:
			lg.Warn("Transaction id collision, regenerating", zap.String("transaction_id", txID))
			continue
		default:
			return nil, err
		}
	}
}

func replayed(o *order.Order) *Result {
	r := &Result{Order: o, Replayed: true}
	if o.Payment != nil {
		r.TransactionID = o.Payment.TransactionID
	}
	return r
}
