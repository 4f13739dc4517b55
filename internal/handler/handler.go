// Package handler exposes the order and payment services over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/bookbazaar/internal/domain/auth"
	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/order"
	"github.com/xenking/bookbazaar/internal/domain/payment"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Debug exposes internal error messages in 500 responses.
	Debug bool
}

// Handler serves the order and payment endpoints, delegating business logic
// to the domain services.
type Handler struct {
	books    book.Repository
	orders   *order.Service
	payments *payment.Service
	debug    bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	books book.Repository,
	orders *order.Service,
	payments *payment.Service,
) *Handler {
	return &Handler{
		books:    books,
		orders:   orders,
		payments: payments,
		debug:    cfg.Debug,
	}
}

// Routes returns the API router. Every route requires a bearer token
// accepted by verifier.
func (h *Handler) Routes(verifier *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(Authenticate(verifier))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListMyOrders)
		r.Get("/all/admin", h.ListAllOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
		r.Put("/{id}/cancel", h.CancelOrder)
	})
	r.Route("/payment", func(r chi.Router) {
		r.Post("/process", h.ProcessPayment)
		r.Post("/validate-card", h.ValidateCard)
	})

	return r
}
