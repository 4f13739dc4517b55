package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how the customer intends to pay.
type PaymentMethod string

// Supported payment methods.
const (
	PaymentCOD        PaymentMethod = "COD"
	PaymentCard       PaymentMethod = "Card"
	PaymentUPI        PaymentMethod = "UPI"
	PaymentNetBanking PaymentMethod = "NetBanking"
)

// PaymentMethods lists every accepted method in display order.
var PaymentMethods = []PaymentMethod{PaymentCOD, PaymentCard, PaymentUPI, PaymentNetBanking}

// ParsePaymentMethod matches raw against the supported methods, ignoring case.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	for _, m := range PaymentMethods {
		if equalFold(string(m), raw) {
			return m, true
		}
	}
	return "", false
}

// PaymentSucceeded is the settlement status recorded on paid orders.
const PaymentSucceeded = "success"

// Order is the root aggregate of a customer purchase.
type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	TotalAmount     decimal.Decimal
	Status          Status
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	IsPaid          bool
	PaidAt          *time.Time
	Payment         *PaymentDetails
	IsDelivered     bool
	DeliveredAt     *time.Time
	TrackingDetails string
	// Version increments on every persisted change.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID returns the id of the user who placed the order.
func (o *Order) OwnerID() string {
	return o.UserID
}

// LineItem is an immutable snapshot of one book within an order.
type LineItem struct {
	BookID   string          `json:"book"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ShippingAddress is where the order is delivered. Every field is required.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentDetails records a completed settlement.
type PaymentDetails struct {
	TransactionID string
	Method        PaymentMethod
	Status        string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// Get returns ErrNotFound when no order has the id.
	Get(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]Order, error)
	// Update loads the order while holding its exclusive lock, applies fn and
	// persists the result. The lock spans the whole read-modify-write, and fn
	// receives a context that joins the same transaction. An error from fn
	// leaves the order untouched.
	Update(ctx context.Context, id string, fn func(ctx context.Context, o *Order) error) (*Order, error)
}

// UnitOfWork runs fn atomically. Stores called with the context passed to fn
// take part in the same transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
