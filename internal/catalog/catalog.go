// Package catalog reads book catalog files used to seed the stores.
package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookbazaar/db"
	"github.com/xenking/bookbazaar/internal/domain/book"
)

type bookJSON struct {
	ID       string          `json:"id"`
	MongoID  string          `json:"_id"`
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

// ReadFile reads a JSON array of books. Files ending in .gz are
// gzip-compressed.
func ReadFile(path string) ([]book.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	books, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return books, nil
}

// Sample returns the embedded sample catalog.
func Sample() ([]book.Book, error) {
	return Decode(bytes.NewReader(db.SampleCatalog))
}

// Load reads path, or the sample catalog when path is empty.
func Load(path string) ([]book.Book, error) {
	if path == "" {
		return Sample()
	}
	return ReadFile(path)
}

// Decode parses and validates a JSON array of books. Either "id" or "_id"
// names the book.
func Decode(r io.Reader) ([]book.Book, error) {
	var raw []bookJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode books")
	}

	seen := make(map[string]struct{}, len(raw))
	books := make([]book.Book, 0, len(raw))
	for i, b := range raw {
		id := strings.TrimSpace(b.ID)
		if id == "" {
			id = strings.TrimSpace(b.MongoID)
		}
		switch {
		case id == "":
			return nil, errors.Errorf("book %d: id is required", i)
		case strings.TrimSpace(b.Title) == "":
			return nil, errors.Errorf("book %s: title is required", id)
		case b.Price.IsNegative():
			return nil, errors.Errorf("book %s: price must not be negative", id)
		case b.Stock < 0:
			return nil, errors.Errorf("book %s: stock must not be negative", id)
		}
		if _, dup := seen[id]; dup {
			return nil, errors.Errorf("book %s: duplicate id", id)
		}
		seen[id] = struct{}{}

		books = append(books, book.Book{
			ID:       id,
			Title:    strings.TrimSpace(b.Title),
			Author:   strings.TrimSpace(b.Author),
			Category: b.Category,
			Image:    b.Image,
			Price:    b.Price,
			Stock:    b.Stock,
		})
	}
	return books, nil
}
