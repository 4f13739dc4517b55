package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyPaid is returned by MarkPaid on an order that is already paid.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrDuplicateTransaction is returned by stores when a transaction id is
	// already recorded on another order.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	// ErrConcurrentUpdate is returned by stores when an order changed between
	// read and write.
	ErrConcurrentUpdate = errors.New("order was modified concurrently")
)

// InvalidTransitionError indicates a status change the lifecycle forbids.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
