package order

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
		StatusProcessing: {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
		StatusShipped:    {StatusShipped, StatusDelivered, StatusCancelled},
		StatusDelivered:  {},
		StatusCancelled:  {},
	}
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

	for from, targets := range allowed {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, contains(targets, to), CanTransition(from, to))
			})
		}
	}
	assert.False(t, CanTransition("unknown", StatusShipped))
	assert.False(t, CanTransition(StatusPending, "lost"))
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Shipped ")
	require.True(t, ok)
	assert.Equal(t, StatusShipped, s)

	_, ok = ParseStatus("returned")
	assert.False(t, ok)
}

func TestSetStatus_DeliveredMarksDelivery(t *testing.T) {
	o := &Order{Status: StatusShipped}
	tracking := "UPS 1Z999"

	require.NoError(t, o.SetStatus(StatusDelivered, &tracking, testNow))

	assert.Equal(t, StatusDelivered, o.Status)
	assert.True(t, o.IsDelivered)
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, testNow, *o.DeliveredAt)
	assert.Equal(t, "UPS 1Z999", o.TrackingDetails)
	assert.Equal(t, testNow, o.UpdatedAt)
}

func TestSetStatus_TrackingOnly(t *testing.T) {
	o := &Order{Status: StatusShipped, TrackingDetails: "old"}
	tracking := "new"

	require.NoError(t, o.SetStatus(StatusShipped, &tracking, testNow))
	assert.Equal(t, "new", o.TrackingDetails)

	require.NoError(t, o.SetStatus(StatusShipped, nil, testNow))
	assert.Equal(t, "new", o.TrackingDetails)
}

func TestSetStatus_Backwards(t *testing.T) {
	o := &Order{Status: StatusShipped}

	err := o.SetStatus(StatusProcessing, nil, testNow)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusShipped, itErr.From)
	assert.Equal(t, StatusProcessing, itErr.To)
	assert.Equal(t, StatusShipped, o.Status)
}

func TestSetStatus_TerminalIsFinal(t *testing.T) {
	for _, from := range []Status{StatusDelivered, StatusCancelled} {
		o := &Order{Status: from}
		err := o.SetStatus(StatusShipped, nil, testNow)

		var itErr *InvalidTransitionError
		require.ErrorAs(t, err, &itErr)
		assert.Equal(t, "order is already "+string(from), itErr.Reason)
	}
}

func TestCancel(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusProcessing, StatusShipped} {
		o := &Order{Status: from}
		require.NoError(t, o.Cancel(testNow))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, testNow, o.UpdatedAt)
	}
}

func TestCancel_Rejected(t *testing.T) {
	o := &Order{Status: StatusDelivered}
	err := o.Cancel(testNow)
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, "cannot cancel delivered orders", itErr.Error())
	assert.Equal(t, StatusDelivered, o.Status)

	o = &Order{Status: StatusCancelled}
	err = o.Cancel(testNow)
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, "order is already cancelled", itErr.Error())
}

func TestMarkPaid(t *testing.T) {
	o := &Order{Status: StatusPending}
	details := PaymentDetails{TransactionID: "TXN1", Method: PaymentCard, Status: PaymentSucceeded}

	require.NoError(t, o.MarkPaid(details, testNow))
	assert.True(t, o.IsPaid)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, testNow, *o.PaidAt)
	assert.Equal(t, "TXN1", o.Payment.TransactionID)

	err := o.MarkPaid(PaymentDetails{TransactionID: "TXN2"}, testNow.Add(time.Minute))
	require.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Equal(t, "TXN1", o.Payment.TransactionID)
	assert.Equal(t, testNow, *o.PaidAt)
}

func TestMarkPaid_Cancelled(t *testing.T) {
	o := &Order{Status: StatusCancelled}

	var itErr *InvalidTransitionError
	require.ErrorAs(t, o.MarkPaid(PaymentDetails{TransactionID: "TXN1"}, testNow), &itErr)
	assert.False(t, o.IsPaid)
}

func TestPaymentStatusIndependentOfLifecycle(t *testing.T) {
	o := &Order{Status: StatusShipped}
	require.NoError(t, o.MarkPaid(PaymentDetails{TransactionID: "TXN1"}, testNow))
	assert.Equal(t, StatusShipped, o.Status)

	require.NoError(t, o.SetStatus(StatusDelivered, nil, testNow))
	assert.True(t, o.IsPaid)
}
