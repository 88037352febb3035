package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusPending, false},
		{StatusDelivered, StatusRefunded, true},
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusRefunded, true},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusPending, false},
		{StatusRefunded, StatusCancelled, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusIsCancellable(t *testing.T) {
	assert.True(t, StatusPending.IsCancellable())
	assert.True(t, StatusConfirmed.IsCancellable())
	assert.True(t, StatusProcessing.IsCancellable())
	assert.True(t, StatusShipped.IsCancellable())
	assert.False(t, StatusDelivered.IsCancellable())
	assert.False(t, StatusCancelled.IsCancellable())
	assert.False(t, StatusRefunded.IsCancellable())
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.False(t, Status("SOMETHING_ELSE").IsValid())
}
