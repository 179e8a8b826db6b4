package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []string
	bus.Subscribe(StreamDelta, func(e Event) {
		got = append(got, e.Data.(StreamDeltaData).Delta)
	})

	for _, d := range []string{"a", "b", "c"} {
		bus.Publish(Event{Type: StreamDelta, Data: StreamDeltaData{Delta: d}})
	}

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBus_SubscribeFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var statusCount, allCount int
	bus.Subscribe(StatusChanged, func(Event) { statusCount++ })
	bus.SubscribeAll(func(Event) { allCount++ })

	bus.Publish(Event{Type: StatusChanged})
	bus.Publish(Event{Type: UsageUpdated})

	assert.Equal(t, 1, statusCount)
	assert.Equal(t, 2, allCount)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int
	unsub := bus.Subscribe(StatusChanged, func(Event) { count++ })

	bus.Publish(Event{Type: StatusChanged})
	unsub()
	bus.Publish(Event{Type: StatusChanged})

	assert.Equal(t, 1, count)
}

func TestBus_ClosedBusDropsEvents(t *testing.T) {
	bus := NewBus()

	var count int
	bus.Subscribe(StatusChanged, func(Event) { count++ })

	assert.NoError(t, bus.Close())
	bus.Publish(Event{Type: StatusChanged})

	assert.Zero(t, count)
}
