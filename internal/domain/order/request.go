package order

import (
	"fmt"
	"strings"

	"github.com/xenking/bookbazaar/internal/domain/inventory"
)

// ItemRequest is one requested book and quantity.
type ItemRequest struct {
	BookID   string
	Quantity int
}

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	Items           []ItemRequest
	ShippingAddress ShippingAddress
	PaymentMethod   string
}

// Validate checks every field and reports all problems at once.
func (r PlaceRequest) Validate() error {
	var verr ValidationError

	if len(r.Items) == 0 {
		verr.Add("items", "Order must have at least one item")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.BookID) == "" {
			verr.Add(fmt.Sprintf("items[%d].book", i), "Book is required")
		}
		if item.Quantity < 1 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "Quantity must be at least 1")
		}
	}

	addr := r.ShippingAddress
	if strings.TrimSpace(addr.Address) == "" {
		verr.Add("shippingAddress.address", "Address is required")
	}
	if strings.TrimSpace(addr.City) == "" {
		verr.Add("shippingAddress.city", "City is required")
	}
	if strings.TrimSpace(addr.PostalCode) == "" {
		verr.Add("shippingAddress.postalCode", "Postal code is required")
	}
	if strings.TrimSpace(addr.Country) == "" {
		verr.Add("shippingAddress.country", "Country is required")
	}

	switch {
	case strings.TrimSpace(r.PaymentMethod) == "":
		verr.Add("paymentMethod", "Payment method is required")
	default:
		if _, ok := ParsePaymentMethod(r.PaymentMethod); !ok {
			verr.Add("paymentMethod", "Payment method must be one of COD, Card, UPI, NetBanking")
		}
	}

	return verr.Err()
}

func (r PlaceRequest) lines() []inventory.Line {
	lines := make([]inventory.Line, len(r.Items))
	for i, item := range r.Items {
		lines[i] = inventory.Line{BookID: strings.TrimSpace(item.BookID), Quantity: item.Quantity}
	}
	return lines
}

func (a ShippingAddress) trimmed() ShippingAddress {
	return ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// StatusUpdate holds an admin status change.
type StatusUpdate struct {
	Status string
	// TrackingDetails replaces the tracking text when non-nil.
	TrackingDetails *string
}

func (u StatusUpdate) target() (Status, error) {
	s, ok := ParseStatus(u.Status)
	if ok {
		for _, t := range AdminTargets {
			if s == t {
				return s, nil
			}
		}
	}
	verr := &ValidationError{}
	verr.Add("status", "Status must be one of processing, shipped, delivered, cancelled")
	return "", verr
}
