package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	boom := errors.New("boom")

	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.UserID)
		return boom
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		seen = append(seen, "created")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserDeleted, UserID: "u1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:u1", "second:u1"}, seen)
}

func TestDispatcherWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserUpdated}))
}

func TestDispatcherRecoversPanickingSubscriber(t *testing.T) {
	d := NewInMemoryDispatcher()
	delivered := false

	d.Subscribe(EventUserUpdated, nil)
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error { panic("cache gone") })
	d.Subscribe(EventUserUpdated, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserUpdated, UserID: "u1"})
	assert.ErrorContains(t, err, "user_updated subscriber 0: panic: cache gone")
	assert.True(t, delivered)
}
