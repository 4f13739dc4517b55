package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
	"github.com/xenking/bookbazaar/internal/domain/order"
	"github.com/xenking/bookbazaar/internal/domain/payment"
)

// errBadBody marks a request body that is not the expected JSON document.
var errBadBody = errors.New("invalid request body")

// writeError converts domain errors to HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *order.ValidationError
		bnfErr *inventory.BookNotFoundError
		isErr  *inventory.InsufficientStockError
		iqErr  *inventory.InvalidQuantityError
		itErr  *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, errBadBody):
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("message", func(e *jx.Encoder) { e.Str("Validation failed") })
				e.Field("errors", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, f := range verr.Fields {
							e.Obj(func(e *jx.Encoder) {
								e.Field("field", func(e *jx.Encoder) { e.Str(f.Field) })
								e.Field("message", func(e *jx.Encoder) { e.Str(f.Message) })
							})
						}
					})
				})
			})
		})
	case errors.As(err, &bnfErr):
		writeJSON(w, http.StatusNotFound, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("message", func(e *jx.Encoder) { e.Str("Book not found: " + bnfErr.BookID) })
				e.Field("book", func(e *jx.Encoder) { e.Str(bnfErr.BookID) })
			})
		})
	case errors.As(err, &isErr):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("message", func(e *jx.Encoder) { e.Str("Insufficient stock for " + isErr.Title) })
				e.Field("book", func(e *jx.Encoder) { e.Str(isErr.BookID) })
				e.Field("title", func(e *jx.Encoder) { e.Str(isErr.Title) })
				e.Field("requested", func(e *jx.Encoder) { e.Int(isErr.Requested) })
				e.Field("available", func(e *jx.Encoder) { e.Int(isErr.Available) })
			})
		})
	case errors.As(err, &iqErr), errors.Is(err, inventory.ErrNoLines):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Not authorized, no token")
	case errors.Is(err, auth.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Not authorized")
	case errors.As(err, &itErr):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("message", func(e *jx.Encoder) { e.Str(itErr.Error()) })
				e.Field("status", func(e *jx.Encoder) { e.Str(string(itErr.From)) })
			})
		})
	case errors.Is(err, payment.ErrPaymentFailed):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
				e.Field("message", func(e *jx.Encoder) { e.Str("Payment failed. Please try again.") })
			})
		})
	case errors.Is(err, payment.ErrCashOnDelivery):
		writeJSON(w, http.StatusBadRequest, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
				e.Field("message", func(e *jx.Encoder) { e.Str("Cash on delivery orders are paid on delivery") })
			})
		})
	case errors.Is(err, order.ErrConcurrentUpdate):
		writeMessage(w, http.StatusConflict, "Order was modified concurrently, please retry")
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg := "Internal server error"
		if h.debug {
			msg = err.Error()
		}
		writeMessage(w, http.StatusInternalServerError, msg)
	}
}
