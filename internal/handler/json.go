package handler

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookbazaar/internal/domain/book"
	"github.com/xenking/bookbazaar/internal/domain/inventory"
	"github.com/xenking/bookbazaar/internal/domain/order"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// decodeBody walks the top-level JSON object of the request body, calling
// field for every key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(io.LimitReader(r.Body, maxBodySize), 4096)
	if d.Next() != jx.Object {
		return errBadBody
	}
	if err := d.Obj(field); err != nil {
		return errors.Wrap(errBadBody, err.Error())
	}
	return nil
}

// lenientStr reads a string. Other scalar types yield their JSON text; objects
// and arrays are skipped and yield "".
func lenientStr(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	case jx.Number:
		n, err := d.Num()
		return string(n), err
	default:
		return "", d.Skip()
	}
}

// lenientInt reads an integer given as a JSON number or numeric string.
// Anything else, including fractions and values beyond
// inventory.MaxQuantity, yields 0.
func lenientInt(d *jx.Decoder) (int, error) {
	switch d.Next() {
	case jx.Number:
		f, err := d.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > inventory.MaxQuantity {
			return 0, err
		}
		return int(f), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(s))
		if convErr != nil || n > inventory.MaxQuantity || n < -inventory.MaxQuantity {
			return 0, nil
		}
		return n, nil
	default:
		return 0, d.Skip()
	}
}

func decodePlaceRequest(r *http.Request) (order.PlaceRequest, error) {
	var req order.PlaceRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var item order.ItemRequest
				if d.Next() != jx.Object {
					req.Items = append(req.Items, item)
					return d.Skip()
				}
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "book", "bookId":
						item.BookID, err = lenientStr(d)
					case "quantity":
						item.Quantity, err = lenientInt(d)
					default:
						err = d.Skip()
					}
					return err
				})
				req.Items = append(req.Items, item)
				return err
			})
		case "shippingAddress":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				addr := &req.ShippingAddress
				switch key {
				case "address":
					addr.Address, err = lenientStr(d)
				case "city":
					addr.City, err = lenientStr(d)
				case "postalCode":
					addr.PostalCode, err = lenientStr(d)
				case "country":
					addr.Country, err = lenientStr(d)
				default:
					err = d.Skip()
				}
				return err
			})
		case "paymentMethod":
			var err error
			req.PaymentMethod, err = lenientStr(d)
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeStatusUpdate(r *http.Request) (order.StatusUpdate, error) {
	var upd order.StatusUpdate
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			var err error
			upd.Status, err = lenientStr(d)
			return err
		case "trackingDetails":
			s, err := lenientStr(d)
			upd.TrackingDetails = &s
			return err
		default:
			return d.Skip()
		}
	})
	return upd, err
}

// decodeStrings reads the named string fields of a flat object.
func decodeStrings(r *http.Request, fields map[string]*string) error {
	return decodeBody(r, func(d *jx.Decoder, key string) error {
		dst, ok := fields[key]
		if !ok {
			return d.Skip()
		}
		var err error
		*dst, err = lenientStr(d)
		return err
	})
}

// bookIndex loads the current catalog records of every book referenced by
// orders, used to populate line items.
func (h *Handler) bookIndex(r *http.Request, orders ...*order.Order) (map[string]book.Book, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, li := range o.Items {
			if _, ok := seen[li.BookID]; !ok {
				seen[li.BookID] = struct{}{}
				ids = append(ids, li.BookID)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	books, err := h.books.GetByIDs(r.Context(), ids)
	if err != nil {
		return nil, errors.Wrap(err, "load order books")
	}
	idx := make(map[string]book.Book, len(books))
	for _, b := range books {
		idx[b.ID] = b
	}
	return idx, nil
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t *time.Time) {
	if t == nil || t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeBook(e *jx.Encoder, b book.Book) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(b.ID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(b.Title) })
		e.Field("author", func(e *jx.Encoder) { e.Str(b.Author) })
		e.Field("category", func(e *jx.Encoder) { e.Str(b.Category) })
		e.Field("image", func(e *jx.Encoder) { e.Str(b.Image) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, b.Price) })
	})
}

// encodeOrder writes o. Line items whose book is in books carry the populated
// book object; others carry the bare book id.
func encodeOrder(e *jx.Encoder, o *order.Order, books map[string]book.Book) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("user", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, li := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("book", func(e *jx.Encoder) {
							if b, ok := books[li.BookID]; ok {
								encodeBook(e, b)
								return
							}
							e.Str(li.BookID)
						})
						e.Field("title", func(e *jx.Encoder) { e.Str(li.Title) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, li.Price) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(li.Quantity) })
					})
				}
			})
		})
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, o.TotalAmount) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("shippingAddress", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("address", func(e *jx.Encoder) { e.Str(o.ShippingAddress.Address) })
				e.Field("city", func(e *jx.Encoder) { e.Str(o.ShippingAddress.City) })
				e.Field("postalCode", func(e *jx.Encoder) { e.Str(o.ShippingAddress.PostalCode) })
				e.Field("country", func(e *jx.Encoder) { e.Str(o.ShippingAddress.Country) })
			})
		})
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(string(o.PaymentMethod)) })
		e.Field("isPaid", func(e *jx.Encoder) { e.Bool(o.IsPaid) })
		e.Field("paidAt", func(e *jx.Encoder) { encodeTime(e, o.PaidAt) })
		if p := o.Payment; p != nil {
			e.Field("paymentDetails", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("transactionId", func(e *jx.Encoder) { e.Str(p.TransactionID) })
					e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(string(p.Method)) })
					e.Field("status", func(e *jx.Encoder) { e.Str(p.Status) })
				})
			})
		}
		e.Field("isDelivered", func(e *jx.Encoder) { e.Bool(o.IsDelivered) })
		e.Field("deliveredAt", func(e *jx.Encoder) { encodeTime(e, o.DeliveredAt) })
		e.Field("trackingDetails", func(e *jx.Encoder) { e.Str(o.TrackingDetails) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, &o.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, &o.UpdatedAt) })
	})
}
