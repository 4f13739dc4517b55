package book

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Book is a catalog record. Stock is never negative.
type Book struct {
	ID       string
	Title    string
	Author   string
	Category string
	Image    string
	Price    decimal.Decimal
	Stock    int
}

// Repository defines read operations for the book catalog. Catalog management
// (create/update/delete/search) belongs to the catalog service.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
}
