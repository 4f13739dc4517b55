package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/bookbazaar/internal/domain/book"
)

// --- Mock implementations ---

type mockStock struct {
	mu         sync.Mutex
	books      map[string]book.Book
	decrements []string
	maxQty     int
	incErr     error
}

func newMockStock(books ...book.Book) *mockStock {
	m := &mockStock{books: make(map[string]book.Book, len(books))}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *mockStock) Decrement(_ context.Context, id string, qty int) (*book.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrements = append(m.decrements, id)
	m.maxQty = max(m.maxQty, qty)
	b, ok := m.books[id]
	if !ok {
		return nil, book.ErrNotFound
	}
	if b.Stock < qty {
		return nil, &InsufficientStockError{BookID: id, Title: b.Title, Requested: qty, Available: b.Stock}
	}
	b.Stock -= qty
	m.books[id] = b
	return &b, nil
}

func (m *mockStock) Increment(_ context.Context, id string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	b := m.books[id]
	b.Stock += qty
	m.books[id] = b
	return nil
}

func (m *mockStock) stockOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id].Stock
}

// --- Helpers ---

func newTestBook(id, title, price string, stock int) book.Book {
	return book.Book{ID: id, Title: title, Price: decimal.RequireFromString(price), Stock: stock}
}

// --- Tests ---

func TestReserve_DecrementsEveryLine(t *testing.T) {
	stock := newMockStock(
		newTestBook("b1", "Dune", "12.50", 5),
		newTestBook("b2", "SICP", "45.00", 2),
	)

	res, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "b2", Quantity: 2},
		{BookID: "b1", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, "b2", res.Lines[0].Book.ID)
	assert.Equal(t, 2, res.Lines[0].Quantity)
	assert.Equal(t, "b1", res.Lines[1].Book.ID)
	assert.Equal(t, "Dune", res.Lines[1].Book.Title)

	assert.Equal(t, 4, stock.stockOf("b1"))
	assert.Equal(t, 0, stock.stockOf("b2"))
}

func TestReserve_SortedDecrementOrder(t *testing.T) {
	stock := newMockStock(
		newTestBook("a", "A", "1", 5),
		newTestBook("b", "B", "1", 5),
		newTestBook("c", "C", "1", 5),
	)

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "c", Quantity: 1},
		{BookID: "a", Quantity: 1},
		{BookID: "b", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, stock.decrements)
}

func TestReserve_MergesDuplicateBooks(t *testing.T) {
	stock := newMockStock(newTestBook("b1", "Dune", "10", 5))

	res, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "b1", Quantity: 2},
		{BookID: "b1", Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b1"}, stock.decrements)
	assert.Equal(t, 0, stock.stockOf("b1"))
	require.Len(t, res.Lines, 2)
	assert.Equal(t, 2, res.Lines[0].Quantity)
	assert.Equal(t, 3, res.Lines[1].Quantity)
}

func TestReserve_MergedTotalExceedsStock(t *testing.T) {
	stock := newMockStock(newTestBook("b1", "Dune", "10", 4))

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "b1", Quantity: 2},
		{BookID: "b1", Quantity: 3},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 5, isErr.Requested)
	assert.Equal(t, 4, isErr.Available)
	assert.Equal(t, 4, stock.stockOf("b1"))
}

func TestReserve_InsufficientRestoresEarlierLines(t *testing.T) {
	stock := newMockStock(
		newTestBook("a", "First", "1", 5),
		newTestBook("b", "Second", "1", 1),
	)

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "a", Quantity: 3},
		{BookID: "b", Quantity: 2},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "b", isErr.BookID)
	assert.Equal(t, "Second", isErr.Title)
	assert.Equal(t, 5, stock.stockOf("a"))
	assert.Equal(t, 1, stock.stockOf("b"))
}

func TestReserve_BookNotFound(t *testing.T) {
	stock := newMockStock(newTestBook("a", "First", "1", 5))

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "a", Quantity: 1},
		{BookID: "zzz", Quantity: 1},
	})

	var bnfErr *BookNotFoundError
	require.ErrorAs(t, err, &bnfErr)
	assert.Equal(t, "zzz", bnfErr.BookID)
	assert.Equal(t, 5, stock.stockOf("a"))
}

func TestReserve_RestoreFailureIsReported(t *testing.T) {
	stock := newMockStock(newTestBook("a", "First", "1", 5))
	stock.incErr = errors.New("connection reset")

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "a", Quantity: 1},
		{BookID: "b", Quantity: 1},
	})

	require.ErrorIs(t, err, book.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReserve_NoLines(t *testing.T) {
	_, err := NewReserver(newMockStock()).Reserve(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoLines)
}

func TestReserve_InvalidQuantity(t *testing.T) {
	stock := newMockStock(newTestBook("a", "First", "1", 5))

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{{BookID: "a", Quantity: 0}})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "a", iqErr.BookID)
	assert.Empty(t, stock.decrements)
}

func TestReservation_ReleaseOnce(t *testing.T) {
	stock := newMockStock(newTestBook("a", "First", "1", 5))
	res, err := NewReserver(stock).Reserve(context.Background(), []Line{{BookID: "a", Quantity: 2}})
	require.NoError(t, err)
	require.Equal(t, 3, stock.stockOf("a"))

	require.NoError(t, res.Release(context.Background()))
	require.NoError(t, res.Release(context.Background()))

	assert.Equal(t, 5, stock.stockOf("a"))
}

func TestMerge_SumsAndSortsByBook(t *testing.T) {
	merged := Merge([]Line{
		{BookID: "z", Quantity: 1},
		{BookID: "a", Quantity: 2},
		{BookID: "m", Quantity: 1},
		{BookID: "z", Quantity: 4},
	})

	assert.Equal(t, []Line{
		{BookID: "a", Quantity: 2},
		{BookID: "m", Quantity: 1},
		{BookID: "z", Quantity: 5},
	}, merged)
}

func TestReserve_MergedTotalAboveMaxQuantity(t *testing.T) {
	stock := newMockStock(newTestBook("b1", "Dune", "10", 10))

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "b1", Quantity: MaxQuantity},
		{BookID: "b1", Quantity: MaxQuantity},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 2*MaxQuantity, isErr.Requested)
	assert.Equal(t, 10, isErr.Available)
	assert.Equal(t, 10, stock.stockOf("b1"))
	assert.LessOrEqual(t, stock.maxQty, MaxQuantity)
}

func TestReserve_MergedTotalAboveFullStock(t *testing.T) {
	stock := newMockStock(newTestBook("b1", "Dune", "10", MaxQuantity))

	_, err := NewReserver(stock).Reserve(context.Background(), []Line{
		{BookID: "b1", Quantity: MaxQuantity},
		{BookID: "b1", Quantity: 1},
	})

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, MaxQuantity+1, isErr.Requested)
	assert.Equal(t, MaxQuantity, isErr.Available)
	assert.Equal(t, "Dune", isErr.Title)
	assert.Equal(t, MaxQuantity, stock.stockOf("b1"))
	assert.LessOrEqual(t, stock.maxQty, MaxQuantity)
}
