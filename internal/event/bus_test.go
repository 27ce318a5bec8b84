package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToAllListeners(t *testing.T) {
	bus := NewBus(nil)

	var got []int
	bus.Subscribe("tick", func(payload any) {
		got = append(got, 1)
	})
	bus.Subscribe("tick", func(payload any) {
		got = append(got, 2)
	})

	bus.Publish("tick", nil)

	assert.Equal(t, []int{1, 2}, got)
}

func TestBus_PayloadPassedThrough(t *testing.T) {
	bus := NewBus(nil)

	var got any
	bus.Subscribe("msg", func(payload any) {
		got = payload
	})

	bus.Publish("msg", "hello")
	assert.Equal(t, "hello", got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	unsub := bus.Subscribe("tick", func(any) { calls++ })

	bus.Publish("tick", nil)
	unsub()
	bus.Publish("tick", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.ListenerCount("tick"))

	// Second unsubscribe is a no-op.
	unsub()
}

func TestBus_PanickingListenerDoesNotBlockOthers(t *testing.T) {
	var reported []error
	bus := NewBus(func(eventName string, err error) {
		reported = append(reported, err)
	})

	secondCalled := false
	bus.Subscribe("tick", func(any) { panic(errors.New("boom")) })
	bus.Subscribe("tick", func(any) { secondCalled = true })

	require.NotPanics(t, func() {
		bus.Publish("tick", nil)
	})

	assert.True(t, secondCalled)
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "boom")
}

func TestBus_SubscribeOnce(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	bus.SubscribeOnce("tick", func(any) { calls++ })

	bus.Publish("tick", nil)
	bus.Publish("tick", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.ListenerCount("tick"))
}

func TestBus_SubscribeOnceReentrantPublish(t *testing.T) {
	bus := NewBus(nil)

	onceCalls := 0
	// A regular listener that republishes the same event while the once
	// listener is still in the dispatch snapshot.
	bus.Subscribe("tick", func(any) {
		if onceCalls == 0 {
			bus.Publish("tick", nil)
		}
	})
	bus.SubscribeOnce("tick", func(any) { onceCalls++ })

	bus.Publish("tick", nil)

	assert.Equal(t, 1, onceCalls)
}

func TestBus_ListenerMayUnsubscribeAnotherMidDispatch(t *testing.T) {
	bus := NewBus(nil)

	var unsubSecond func()
	secondCalls := 0

	bus.Subscribe("tick", func(any) { unsubSecond() })
	unsubSecond = bus.Subscribe("tick", func(any) { secondCalls++ })

	// The snapshot taken at publish time still includes the second
	// listener, so it fires this cycle but not the next.
	bus.Publish("tick", nil)
	bus.Publish("tick", nil)

	assert.Equal(t, 1, secondCalls)
}

func TestBus_UnsubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("a", func(any) {})
	bus.Subscribe("a", func(any) {})
	bus.Subscribe("b", func(any) {})

	bus.UnsubscribeAll("a")
	assert.Equal(t, 0, bus.ListenerCount("a"))
	assert.Equal(t, 1, bus.ListenerCount("b"))

	bus.UnsubscribeAll()
	assert.Equal(t, 0, bus.ListenerCount("b"))
}
