package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/bookbazaar/internal/domain/inventory"
)

// BuildLineItems snapshots title and price of every reserved line and sums the
// order total. The result no longer depends on the live catalog.
func BuildLineItems(res *inventory.Reservation) ([]LineItem, decimal.Decimal) {
	items := make([]LineItem, len(res.Lines))
	total := decimal.Zero
	for i, l := range res.Lines {
		items[i] = LineItem{
			BookID:   l.Book.ID,
			Title:    l.Book.Title,
			Price:    l.Book.Price,
			Quantity: l.Quantity,
		}
		total = total.Add(items[i].Subtotal())
	}
	return items, total
}

// Total recomputes the sum of line subtotals.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}
