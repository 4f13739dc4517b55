// Package memory implements every store in process memory. Stock changes are
// atomic per book and orders are written under a per-order lock; it has no
// multi-record transactions, so reservations rely on compensation.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
	"github.com/xenking/bookbazaar/internal/domain/order"
)

var (
	_ book.Repository  = (*Store)(nil)
	_ inventory.Stock  = (*Store)(nil)
	_ order.Repository = (*Store)(nil)
	_ order.UnitOfWork = (*Store)(nil)
)

// Store is an in-memory catalog and order store.
type Store struct {
	booksMu sync.Mutex
	books   map[string]book.Book

	ordersMu sync.RWMutex
	orders   map[string]*order.Order
	txIDs    map[string]string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		books:  make(map[string]book.Book),
		orders: make(map[string]*order.Order),
		txIDs:  make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

// PutBook inserts or replaces a catalog record.
func (s *Store) PutBook(b book.Book) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	s.books[b.ID] = b
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// GetByID implements book.Repository.
func (s *Store) GetByID(_ context.Context, id string) (*book.Book, error) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, book.ErrNotFound
	}
	return &b, nil
}

// GetByIDs implements book.Repository. Unknown ids are skipped.
func (s *Store) GetByIDs(_ context.Context, ids []string) ([]book.Book, error) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	out := make([]book.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Decrement implements inventory.Stock.
func (s *Store) Decrement(_ context.Context, bookID string, qty int) (*book.Book, error) {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	b, ok := s.books[bookID]
	if !ok {
		return nil, book.ErrNotFound
	}
	if b.Stock < qty {
		return nil, &inventory.InsufficientStockError{
			BookID:    b.ID,
			Title:     b.Title,
			Requested: qty,
			Available: b.Stock,
		}
	}
	b.Stock -= qty
	s.books[bookID] = b
	return &b, nil
}

// Increment implements inventory.Stock.
func (s *Store) Increment(_ context.Context, bookID string, qty int) error {
	s.booksMu.Lock()
	defer s.booksMu.Unlock()
	b, ok := s.books[bookID]
	if !ok {
		return book.ErrNotFound
	}
	b.Stock += qty
	s.books[bookID] = b
	return nil
}

// RunInTx implements order.UnitOfWork by calling fn directly.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Create implements order.Repository.
func (s *Store) Create(_ context.Context, o *order.Order) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	if o.Version == 0 {
		o.Version = 1
	}
	s.orders[o.ID] = clone(o)
	return nil
}

// Get implements order.Repository.
func (s *Store) Get(_ context.Context, id string) (*order.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return clone(o), nil
}

// ListByUser implements order.Repository.
func (s *Store) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	return s.list(func(o *order.Order) bool { return o.UserID == userID }), nil
}

// List implements order.Repository.
func (s *Store) List(context.Context) ([]order.Order, error) {
	return s.list(func(*order.Order) bool { return true }), nil
}

func (s *Store) list(keep func(*order.Order) bool) []order.Order {
	s.ordersMu.RLock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *clone(o))
		}
	}
	s.ordersMu.RUnlock()

	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out
}

// Update implements order.Repository. The per-order lock is held from read
// to write, so concurrent updates of one order are serialized.
func (s *Store) Update(ctx context.Context, id string, fn func(ctx context.Context, o *order.Order) error) (*order.Order, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.ordersMu.RLock()
	cur, ok := s.orders[id]
	s.ordersMu.RUnlock()
	if !ok {
		return nil, order.ErrNotFound
	}

	o := clone(cur)
	if err := fn(ctx, o); err != nil {
		return nil, err
	}

	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	if o.Payment != nil && o.Payment.TransactionID != "" {
		if owner, taken := s.txIDs[o.Payment.TransactionID]; taken && owner != id {
			return nil, order.ErrDuplicateTransaction
		}
		s.txIDs[o.Payment.TransactionID] = id
	}
	o.Version = cur.Version + 1
	s.orders[id] = clone(o)
	return o, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	if o.Payment != nil {
		p := *o.Payment
		c.Payment = &p
	}
	return &c
}
