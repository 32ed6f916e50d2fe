package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	type payload struct {
		BookingID int64 `json:"booking_id"`
	}

	var got []int64
	bus.Subscribe(BookingCreated, func(e Event) error {
		var p payload
		if err := e.Decode(&p); err != nil {
			return err
		}
		got = append(got, p.BookingID)
		return nil
	})

	var failed []string
	bus.OnError(func(e Event, err error) { failed = append(failed, e.Type) })
	bus.Subscribe(BookingCancelled, func(Event) error { return errors.New("boom") })

	require.NoError(t, bus.PublishJSON(BookingCreated, payload{BookingID: 7}))
	require.NoError(t, bus.PublishJSON(BookingConfirmed, payload{BookingID: 8}))
	require.NoError(t, bus.PublishJSON(BookingCancelled, payload{BookingID: 9}))

	assert.Equal(t, []int64{7}, got)
	assert.Equal(t, []string{BookingCancelled}, failed)

	assert.Error(t, bus.PublishJSON(BookingCreated, make(chan int)))
}
