package payment

import (
	"strconv"
	"strings"

	"github.com/xenking/bookbazaar/internal/domain/order"
)

// Card is raw card input from the checkout form.
type Card struct {
	Number string
	CVV    string
	Expiry string
}

// ValidateCard checks the card input is superficially well formed: a 16 to
// 19 digit number (spaces and dashes ignored), a 3 digit CVV and an MM/YY
// expiry. It contacts nothing and has no side effects; a valid result says
// nothing about whether a charge would succeed.
func ValidateCard(c Card) error {
	var verr order.ValidationError

	number := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, c.Number)
	switch {
	case number == "":
		verr.Add("cardNumber", "Card number is required")
	case !digits(number) || len(number) < 16 || len(number) > 19:
		verr.Add("cardNumber", "Card number must be 16 to 19 digits")
	}

	cvv := strings.TrimSpace(c.CVV)
	if len(cvv) != 3 || !digits(cvv) {
		verr.Add("cvv", "CVV must be 3 digits")
	}

	expiry := strings.TrimSpace(c.Expiry)
	switch {
	case expiry == "":
		verr.Add("expiry", "Expiry is required")
	case !validExpiry(expiry):
		verr.Add("expiry", "Expiry must be in MM/YY format")
	}

	return verr.Err()
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func validExpiry(s string) bool {
	month, year, ok := strings.Cut(s, "/")
	if !ok || len(month) != 2 || len(year) != 2 || !digits(month) || !digits(year) {
		return false
	}
	m, err := strconv.Atoi(month)
	return err == nil && m >= 1 && m <= 12
}
