package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish(t *testing.T) {
	t.Run("should deliver typed payload to subscribers in order", func(t *testing.T) {
		// given
		bus := NewEventBus()
		var received []string
		SubscribeTyped(bus, BookingConfirmedEvent, func(e EventT[BookingConfirmed]) error {
			received = append(received, "first:"+e.Data.CustomerName)
			return nil
		})
		SubscribeTyped(bus, BookingConfirmedEvent, func(e EventT[BookingConfirmed]) error {
			received = append(received, "second:"+e.Data.CustomerName)
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), BookingConfirmedEvent, BookingConfirmed{CustomerName: "Ada"}))

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"first:Ada", "second:Ada"}, received)
	})

	t.Run("should skip typed handlers for other payload types", func(t *testing.T) {
		// given
		bus := NewEventBus()
		called := false
		SubscribeTyped(bus, BookingConfirmedEvent, func(e EventT[BookingConfirmed]) error {
			called = true
			return nil
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), BookingConfirmedEvent, "not a booking"))

		// then
		require.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("should run all handlers and join errors", func(t *testing.T) {
		// given
		bus := NewEventBus()
		boom := errors.New("smtp down")
		secondCalled := false
		bus.Subscribe(BookingConfirmedEvent, func(e Event) error { return boom })
		bus.Subscribe(BookingConfirmedEvent, func(e Event) error {
			secondCalled = true
			panic("template missing")
		})

		// when
		err := bus.Publish(NewEvent(context.Background(), BookingConfirmedEvent, nil))

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "template missing")
		assert.True(t, secondCalled)
	})

	t.Run("should stop delivering after unsubscribe", func(t *testing.T) {
		// given
		bus := NewEventBus()
		count := 0
		unsubscribe := bus.Subscribe(BookingCancelledEvent, func(e Event) error {
			count++
			return nil
		})

		// when
		require.NoError(t, bus.Publish(NewEvent(context.Background(), BookingCancelledEvent, nil)))
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), BookingCancelledEvent, nil)))

		// then
		assert.Equal(t, 1, count)
	})

	t.Run("should refuse to publish with cancelled context", func(t *testing.T) {
		// given
		bus := NewEventBus()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		err := bus.Publish(NewEvent(ctx, BookingConfirmedEvent, nil))

		// then
		assert.ErrorIs(t, err, context.Canceled)
	})
}
