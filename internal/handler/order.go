package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/bookbazaar/internal/domain/order"
)

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.Place(r.Context(), identity(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, http.StatusCreated, o)
}

// ListMyOrders handles GET /orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrders(w, r, orders)
}

// ListAllOrders handles GET /orders/all/admin.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrders(w, r, orders)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, o)
}

// UpdateOrderStatus handles PUT /orders/{id}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	upd, err := decodeStatusUpdate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	o, err := h.orders.SetStatus(r.Context(), identity(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, o)
}

// CancelOrder handles PUT /orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, o)
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, status int, o *order.Order) {
	books, err := h.bookIndex(r, o)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o, books) })
}

func (h *Handler) writeOrders(w http.ResponseWriter, r *http.Request, orders []order.Order) {
	ptrs := make([]*order.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	books, err := h.bookIndex(r, ptrs...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range ptrs {
				encodeOrder(e, o, books)
			}
		})
	})
}
