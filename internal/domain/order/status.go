package order

import (
	"strings"
	"time"
)

// Status is a position in the order lifecycle.
type Status string

// Lifecycle states. Delivered and cancelled are terminal.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// progress orders the fulfilment states. Cancelled sits outside the sequence.
var progress = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

// AdminTargets are the statuses an admin may set.
var AdminTargets = []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus returns the status named by raw.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", false
	}
	return s, true
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := progress[s]
	return ok || s == StatusCancelled
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an admin may move an order from current to
// target. Steps may be skipped but never reversed; cancellation is reachable
// from every non-terminal state; a terminal order never changes. Setting the
// current status again is allowed so tracking details can be updated alone.
func CanTransition(current, target Status) bool {
	if !current.Valid() || !target.Valid() || current.Terminal() {
		return false
	}
	if current == target || target == StatusCancelled {
		return true
	}
	return progress[target] > progress[current]
}

// SetStatus applies an admin status change. Entering delivered marks the
// order delivered. tracking, when non-nil, replaces the tracking details.
func (o *Order) SetStatus(target Status, tracking *string, now time.Time) error {
	if !CanTransition(o.Status, target) {
		reason := "status cannot move backwards"
		if o.Status.Terminal() {
			reason = "order is already " + string(o.Status)
		}
		return &InvalidTransitionError{From: o.Status, To: target, Reason: reason}
	}

	o.Status = target
	if tracking != nil {
		o.TrackingDetails = *tracking
	}
	if target == StatusDelivered && !o.IsDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &now
	}
	o.UpdatedAt = now
	return nil
}

// Cancel applies a customer cancellation.
func (o *Order) Cancel(now time.Time) error {
	switch o.Status {
	case StatusDelivered:
		return &InvalidTransitionError{From: o.Status, To: StatusCancelled, Reason: "cannot cancel delivered orders"}
	case StatusCancelled:
		return &InvalidTransitionError{From: o.Status, To: StatusCancelled, Reason: "order is already cancelled"}
	}
	o.Status = StatusCancelled
	o.UpdatedAt = now
	return nil
}

// MarkPaid records a successful settlement. An order is paid at most once.
func (o *Order) MarkPaid(details PaymentDetails, now time.Time) error {
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	if o.Status == StatusCancelled {
		return &InvalidTransitionError{From: o.Status, To: o.Status, Reason: "cannot pay for a cancelled order"}
	}
	o.IsPaid = true
	o.PaidAt = &now
	o.Payment = &details
	o.UpdatedAt = now
	return nil
}
