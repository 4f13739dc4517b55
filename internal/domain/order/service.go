package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
)

// Service encapsulates order placement and the order lifecycle.
type Service struct {
	stock    inventory.Stock
	reserver *inventory.Reserver
	orders   Repository
	uow      UnitOfWork

	restockOnCancel bool
	now             func() time.Time
	newID           func() string
	tel             telemetry
}

// Option customises a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	restockOnCancel bool
	now             func() time.Time
	newID           func() string
	tracerProvider  trace.TracerProvider
	meterProvider   metric.MeterProvider
}

// WithRestockOnCancel controls whether cancelling an order returns its
// reserved units to stock. Enabled by default.
func WithRestockOnCancel(enabled bool) Option {
	return func(o *serviceOptions) { o.restockOnCancel = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *serviceOptions) { o.newID = newID }
}

// WithTracerProvider sets the tracer provider used for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// NewService creates an order Service. stock is the atomic side of the
// catalog store; uow scopes reservation and order creation to one
// transaction.
func NewService(stock inventory.Stock, orders Repository, uow UnitOfWork, opts ...Option) *Service {
	o := serviceOptions{
		restockOnCancel: true,
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		stock:           stock,
		reserver:        inventory.NewReserver(stock),
		orders:          orders,
		uow:             uow,
		restockOnCancel: o.restockOnCancel,
		now:             o.now,
		newID:           o.newID,
		tel:             newTelemetry(o.tracerProvider, o.meterProvider),
	}
}

// Place validates the request, reserves stock for every line and persists the
// order, all inside one unit of work. No stock changes when any step fails.
func (s *Service) Place(ctx context.Context, who auth.Identity, req PlaceRequest) (_ *Order, rerr error) {
	ctx, span := s.tel.tracer.Start(ctx, "order.Place")
	defer func() { endSpan(span, rerr) }()

	if who.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, _ := ParsePaymentMethod(req.PaymentMethod)

	var placed *Order
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		res, err := s.reserver.Reserve(ctx, req.lines())
		if err != nil {
			return err
		}

		items, total := BuildLineItems(res)
		now := s.now()
		o := &Order{
			ID:              s.newID(),
			UserID:          who.UserID,
			Items:           items,
			TotalAmount:     total,
			Status:          StatusPending,
			ShippingAddress: req.ShippingAddress.trimmed(),
			PaymentMethod:   method,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			// Inside a transaction the rollback restores stock as well.
			if relErr := res.Release(ctx); relErr != nil {
				zctx.From(ctx).Warn("Release reservation after failed create", zap.Error(relErr))
			}
			return errors.Wrap(err, "create order")
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.tel.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(method))))
	span.SetAttributes(attribute.String("order.id", placed.ID))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.String("user_id", who.UserID),
		zap.Int("items", len(placed.Items)),
		zap.String("total", placed.TotalAmount.String()),
	)
	return placed, nil
}

// Get returns an order visible to its owner or an admin.
func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	if who.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(who, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, who auth.Identity) ([]Order, error) {
	if who.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	orders, err := s.orders.ListByUser(ctx, who.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// ListAll returns every order, newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, who auth.Identity) ([]Order, error) {
	if err := auth.RequireAdmin(who); err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// SetStatus applies an admin status change under the order's lock.
func (s *Service) SetStatus(ctx context.Context, who auth.Identity, id string, upd StatusUpdate) (_ *Order, rerr error) {
	ctx, span := s.tel.tracer.Start(ctx, "order.SetStatus")
	defer func() { endSpan(span, rerr) }()

	if err := auth.RequireAdmin(who); err != nil {
		return nil, err
	}
	target, err := upd.target()
	if err != nil {
		return nil, err
	}

	var prev Status
	o, err := s.orders.Update(ctx, id, func(ctx context.Context, o *Order) error {
		prev = o.Status
		if err := o.SetStatus(target, upd.TrackingDetails, s.now()); err != nil {
			return err
		}
		if target == StatusCancelled && prev != StatusCancelled {
			return s.restock(ctx, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, o, prev, who)
	return o, nil
}

// Cancel lets the owner cancel an order that is neither delivered nor
// already cancelled.
func (s *Service) Cancel(ctx context.Context, who auth.Identity, id string) (_ *Order, rerr error) {
	ctx, span := s.tel.tracer.Start(ctx, "order.Cancel")
	defer func() { endSpan(span, rerr) }()

	if who.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	var prev Status
	o, err := s.orders.Update(ctx, id, func(ctx context.Context, o *Order) error {
		if err := auth.RequireOwner(who, o); err != nil {
			return err
		}
		prev = o.Status
		if err := o.Cancel(s.now()); err != nil {
			return err
		}
		return s.restock(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, o, prev, who)
	return o, nil
}

// restock returns the order's units to the catalog in Merge order, the same
// order Reserve locks rows in. Books removed from the catalog since the order
// was placed are skipped.
func (s *Service) restock(ctx context.Context, o *Order) error {
	if !s.restockOnCancel {
		return nil
	}
	lines := make([]inventory.Line, len(o.Items))
	for i, li := range o.Items {
		lines[i] = inventory.Line{BookID: li.BookID, Quantity: li.Quantity}
	}
	for _, l := range inventory.Merge(lines) {
		err := s.stock.Increment(ctx, l.BookID, l.Quantity)
		switch {
		case err == nil:
		case errors.Is(err, book.ErrNotFound):
			zctx.From(ctx).Warn("Skip restock of missing book",
				zap.String("order_id", o.ID),
				zap.String("book_id", l.BookID),
			)
		default:
			return errors.Wrapf(err, "restock book %s", l.BookID)
		}
	}
	return nil
}

func (s *Service) recordTransition(ctx context.Context, o *Order, prev Status, who auth.Identity) {
	s.tel.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("user_id", who.UserID),
		zap.String("from", string(prev)),
		zap.String("to", string(o.Status)),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
