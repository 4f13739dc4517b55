// Package inventory reserves catalog stock for orders. A reservation is
// all-or-nothing: either every requested line is decremented or none is.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/bookbazaar/internal/domain/book"
)

// ErrNoLines is returned when a reservation is requested for zero lines.
var ErrNoLines = errors.New("at least one line is required")

// BookNotFoundError indicates a requested book does not exist.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book not found: %s", e.BookID)
}

// InsufficientStockError indicates a book cannot cover the requested quantity.
// Requested is the total across all lines of the order naming the book.
type InsufficientStockError struct {
	BookID    string
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

// InvalidQuantityError indicates a line with a quantity below one.
type InvalidQuantityError struct {
	BookID   string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for book %s, got %d", e.BookID, e.Quantity)
}

// Line is a requested book and quantity.
type Line struct {
	BookID   string
	Quantity int
}

// Stock is the atomic part of the catalog store. Implementations must make
// Decrement a single check-and-set: concurrent callers never drive stock
// below zero.
type Stock interface {
	// Decrement reduces stock by qty if at least qty units are available and
	// returns the record after the decrement. It returns book.ErrNotFound or
	// *InsufficientStockError otherwise, leaving stock untouched.
	Decrement(ctx context.Context, bookID string, qty int) (*book.Book, error)
	// Increment returns qty units to stock.
	Increment(ctx context.Context, bookID string, qty int) error
}
