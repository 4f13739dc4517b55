package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
)

const (
	bookColumns = `id, title, author, category, image, price, stock`

	getBookByIDSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	getBooksByIDsSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = ANY($1)`

	decrementStockSQL = `UPDATE books SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING ` + bookColumns

	incrementStockSQL = `UPDATE books SET stock = stock + $2, updated_at = now() WHERE id = $1`

	upsertBookSQL = `INSERT INTO books (id, title, author, category, image, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			category = EXCLUDED.category,
			image = EXCLUDED.image,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			updated_at = now()`
)

var (
	_ book.Repository = (*BookRepository)(nil)
	_ inventory.Stock = (*BookRepository)(nil)
)

// BookRepository implements book.Repository and inventory.Stock backed by
// PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// GetByID returns a single book or book.ErrNotFound.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getBookByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get book %q", id)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get book %q", id)
	}
	return &b, nil
}

// GetByIDs returns the books matching ids. Missing ids are skipped.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx, getBooksByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get books by ids")
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, errors.Wrap(err, "collect books")
	}
	return books, nil
}

// Decrement takes qty units from the book in one conditional update. When
// nothing is updated a follow-up read tells a missing book from a short one;
// neither case raises an SQL error, so the enclosing transaction stays usable.
func (r *BookRepository) Decrement(ctx context.Context, bookID string, qty int) (*book.Book, error) {
	q := conn(ctx, r.pool)
	rows, err := q.Query(ctx, decrementStockSQL, bookID, qty)
	if err != nil {
		return nil, errors.Wrapf(err, "decrement stock of %q", bookID)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(err, "decrement stock of %q", bookID)
	}

	cur, err := r.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return nil, &inventory.InsufficientStockError{
		BookID:    cur.ID,
		Title:     cur.Title,
		Requested: qty,
		Available: cur.Stock,
	}
}

// Increment returns qty units to the book.
func (r *BookRepository) Increment(ctx context.Context, bookID string, qty int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, incrementStockSQL, bookID, qty)
	if err != nil {
		return errors.Wrapf(err, "increment stock of %q", bookID)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a catalog record. Used by the seed tool.
func (r *BookRepository) Upsert(ctx context.Context, b book.Book) error {
	_, err := conn(ctx, r.pool).Exec(ctx, upsertBookSQL,
		b.ID, b.Title, b.Author, b.Category, b.Image, b.Price, b.Stock,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert book %q", b.ID)
	}
	return nil
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var (
		b     book.Book
		stock int32
	)
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Image, &b.Price, &stock)
	b.Stock = int(stock)
	return b, err
}
