package events

import (
	"encoding/json"
	"testing"
	"time"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		var zero T
		return zero
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan KeyStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e KeyStateChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(KeyStateChangedEvent{Key: "Num Lock", Target: true, Enabled: true, Outcome: "converged", Attempts: 1})

	got := receive(t, received)
	if got.Key != "Num Lock" || got.Outcome != "converged" || !got.Enabled {
		t.Errorf("received %+v", got)
	}
}

func TestBus_OnlyMatchingTypeDelivered(t *testing.T) {
	bus := New()
	statuses := make(chan KeyStatusChangedEvent, 1)
	resets := make(chan KeymapResetEvent, 1)

	defer bus.Subscribe(func(e KeyStatusChangedEvent) { statuses <- e })()
	defer bus.Subscribe(func(e KeymapResetEvent) { resets <- e })()

	bus.Publish(KeymapResetEvent{Timestamp: "now"})

	receive(t, resets)
	select {
	case e := <-statuses:
		t.Fatalf("status subscriber received %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	first := make(chan KeyStatusChangedEvent, 1)
	second := make(chan KeyStatusChangedEvent, 1)

	defer bus.Subscribe(func(e KeyStatusChangedEvent) { first <- e })()
	defer bus.Subscribe(func(e KeyStatusChangedEvent) { second <- e })()

	bus.Publish(KeyStatusChangedEvent{Key: "Scroll Lock", ID: "2"})

	if got := receive(t, first); got.Key != "Scroll Lock" {
		t.Errorf("first subscriber got %+v", got)
	}
	if got := receive(t, second); got.Key != "Scroll Lock" {
		t.Errorf("second subscriber got %+v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan KeymapResetEvent, 1)

	unsub := bus.Subscribe(func(e KeymapResetEvent) { received <- e })
	bus.Publish(KeymapResetEvent{})
	receive(t, received)

	unsub()
	bus.Publish(KeymapResetEvent{})

	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_UnknownHandlerIsNoop(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[KeyStatusChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(KeyStatusChangedEvent{Key: "Caps Lock", Enabled: true})

	ev, ok := receive(t, ch).(KeyStatusChangedEvent)
	if !ok || ev.Key != "Caps Lock" || !ev.Enabled {
		t.Errorf("channel received %#v", ev)
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(KeyStateChangedEvent{
		DriveID:  "d1",
		Key:      "Num Lock",
		Target:   false,
		Outcome:  "exhausted",
		Attempts: 10,
		Error:    "Num Lock could not be turned off",
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, field := range []string{"drive_id", "key", "target", "enabled", "outcome", "attempts", "error", "timestamp"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("field %q missing from %s", field, data)
		}
	}
}
