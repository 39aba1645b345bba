package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventTicketApproved, func(_ context.Context, event Event) error {
		got = append(got, event)
		return nil
	})
	d.Subscribe(EventTicketRejected, func(_ context.Context, event Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketApproved, TicketID: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].TicketID)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	var secondRan bool
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		return errors.New("handler blew up")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		secondRan = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	require.NoError(t, err, "handler failures never reach the publisher")
	require.True(t, secondRan, "later handlers still run")
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned}))
}
