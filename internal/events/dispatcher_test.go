package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherFanOut(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var seen []string
	d.Subscribe(EventComplaintEscalated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.ComplaintID)
		return nil
	})
	d.Subscribe(EventComplaintEscalated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.ComplaintID)
		return nil
	})
	d.Subscribe(EventComplaintRated, func(_ context.Context, e Event) error {
		seen = append(seen, "rated:"+e.ComplaintID)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventComplaintEscalated, ComplaintID: "c-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first:c-1", "second:c-1"}, seen)
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var reached bool
	d.Subscribe(EventComplaintAssigned, func(context.Context, Event) error {
		return errors.New("notification transport down")
	})
	d.Subscribe(EventComplaintAssigned, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventComplaintAssigned, ComplaintID: "c-2"})
	require.NoError(t, err, "publish never fails because of handlers")
	assert.True(t, reached)
}
