package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/bookbazaar/internal/domain/payment"
)

// ProcessPayment handles POST /payment/process.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.ProcessRequest
	if err := decodeStrings(r, map[string]*string{
		"orderId":       &req.OrderID,
		"paymentMethod": &req.Method,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.payments.Process(r.Context(), identity(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	books, err := h.bookIndex(r, res.Order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "Payment processed successfully"
	if res.Replayed {
		msg = "Order is already paid"
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			e.Field("transactionId", func(e *jx.Encoder) { e.Str(res.TransactionID) })
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order, books) })
		})
	})
}

// ValidateCard handles POST /payment/validate-card. The check is advisory and
// has no side effects.
func (h *Handler) ValidateCard(w http.ResponseWriter, r *http.Request) {
	var card payment.Card
	if err := decodeStrings(r, map[string]*string{
		"cardNumber": &card.Number,
		"cvv":        &card.CVV,
		"expiry":     &card.Expiry,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := payment.ValidateCard(card); err != nil {
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("valid", func(e *jx.Encoder) { e.Bool(false) })
				e.Field("message", func(e *jx.Encoder) { e.Str("Invalid card details") })
				e.Field("error", func(e *jx.Encoder) { e.Str(err.Error()) })
			})
		})
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("valid", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("message", func(e *jx.Encoder) { e.Str("Card details validated") })
		})
	})
}
