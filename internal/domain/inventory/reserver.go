package inventory

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/bookbazaar/internal/domain/book"
)

// Reserved is one requested line together with the book record captured at
// the moment its stock was decremented.
type Reserved struct {
	Book     book.Book
	Quantity int
}

// Reservation is the result of a successful Reserve call.
type Reservation struct {
	// Lines mirrors the requested lines, in request order.
	Lines []Reserved

	stock    Stock
	taken    []Line
	released bool
}

// Release returns every reserved unit to stock. It is a no-op after the
// first call.
func (r *Reservation) Release(ctx context.Context) error {
	if r == nil || r.released {
		return nil
	}
	r.released = true
	return restore(ctx, r.stock, r.taken)
}

// Reserver validates requested lines against the catalog and decrements stock
// for the whole order.
type Reserver struct {
	stock Stock
}

// NewReserver creates a Reserver backed by stock.
func NewReserver(stock Stock) *Reserver {
	return &Reserver{stock: stock}
}

// MaxQuantity is the largest stock level a book can hold.
const MaxQuantity = math.MaxInt32

// Merge sums the quantities of lines naming the same book and returns one
// line per book in ascending id order. Every writer that touches several
// books walks them in this order so row locks are taken consistently.
func Merge(lines []Line) []Line {
	totals := make(map[string]int, len(lines))
	for _, l := range lines {
		totals[l.BookID] += l.Quantity
	}
	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{BookID: id, Quantity: qty})
	}
	slices.SortFunc(merged, func(a, b Line) int { return strings.Compare(a.BookID, b.BookID) })
	return merged
}

// Reserve decrements stock for every line. Lines naming the same book are
// summed before the check, and books are decremented in Merge order.
//
// On any failure the units already taken are returned before the error is
// reported, so callers outside a database transaction observe no partial
// effect. Inside a transaction the rollback has the same outcome.
func (r *Reserver) Reserve(ctx context.Context, lines []Line) (*Reservation, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{BookID: l.BookID, Quantity: l.Quantity}
		}
	}

	merged := Merge(lines)
	taken := make([]Line, 0, len(merged))
	snapshots := make(map[string]book.Book, len(merged))
	for _, l := range merged {
		b, err := r.take(ctx, l)
		if err != nil {
			if relErr := restore(ctx, r.stock, taken); relErr != nil {
				return nil, errors.Wrapf(err, "restore stock: %s", relErr)
			}
			if errors.Is(err, book.ErrNotFound) {
				return nil, &BookNotFoundError{BookID: l.BookID}
			}
			return nil, err
		}
		taken = append(taken, l)
		snapshots[l.BookID] = *b
	}

	reserved := make([]Reserved, len(lines))
	for i, l := range lines {
		reserved[i] = Reserved{Book: snapshots[l.BookID], Quantity: l.Quantity}
	}

	return &Reservation{
		Lines: reserved,
		stock: r.stock,
		taken: taken,
	}, nil
}

// take decrements one merged line. A total above MaxQuantity can never be
// covered, so the store only sees quantities within the stock column range.
func (r *Reserver) take(ctx context.Context, l Line) (*book.Book, error) {
	if l.Quantity <= MaxQuantity {
		return r.stock.Decrement(ctx, l.BookID, l.Quantity)
	}
	b, err := r.stock.Decrement(ctx, l.BookID, MaxQuantity)
	if err != nil {
		var isErr *InsufficientStockError
		if errors.As(err, &isErr) {
			isErr.Requested = l.Quantity
		}
		return nil, err
	}
	if err := r.stock.Increment(ctx, l.BookID, MaxQuantity); err != nil {
		return nil, errors.Wrapf(err, "increment %s", l.BookID)
	}
	return nil, &InsufficientStockError{
		BookID:    b.ID,
		Title:     b.Title,
		Requested: l.Quantity,
		Available: b.Stock + MaxQuantity,
	}
}

func restore(ctx context.Context, stock Stock, taken []Line) error {
	var firstErr error
	for _, l := range taken {
		if err := stock.Increment(ctx, l.BookID, l.Quantity); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "increment %s", l.BookID)
		}
	}
	return firstErr
}
