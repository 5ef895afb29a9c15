package events

import (
	"testing"
	"time"
)

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return Event{}
	}
}

// ============================================================================
// TEST: Subscription routing
// ============================================================================

func TestPublish_RoutesToTypeSubscribers(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	other := make(chan Event, 1)

	bus.Subscribe(EventPaymentReceived, func(e Event) { received <- e })
	bus.Subscribe(EventDistributionPaid, func(e Event) { other <- e })

	bus.PublishPaymentReceived("s1", "d1", "p1", 600)

	e := waitForEvent(t, received)
	if e.Type != EventPaymentReceived {
		t.Errorf("Expected PAYMENT_RECEIVED, got %s", e.Type)
	}
	if e.Timestamp.IsZero() {
		t.Error("Expected a timestamp to be stamped on publish")
	}

	select {
	case <-other:
		t.Error("Subscriber for a different type must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_RoutesToAllSubscribers(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)

	bus.SubscribeAll(func(e Event) { received <- e })
	bus.PublishDistributionPaid("d1", "c1")

	e := waitForEvent(t, received)
	if e.Data["distribution_id"] != "d1" || e.Data["company_id"] != "c1" {
		t.Errorf("Unexpected event data: %v", e.Data)
	}
}

// ============================================================================
// TEST: Typed publish helpers
// ============================================================================

func TestPublishProfitCalculated(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventProfitCalculated, func(e Event) { received <- e })

	bus.PublishProfitCalculated("c1", "d1", "2025-10", 4000)

	e := waitForEvent(t, received)
	if e.Data["company_id"] != "c1" || e.Data["distribution_id"] != "d1" {
		t.Errorf("Unexpected event data: %v", e.Data)
	}
	if e.Data["month"] != "2025-10" {
		t.Errorf("Expected month 2025-10, got %v", e.Data["month"])
	}
	if profit, ok := e.Data["net_profit"].(float64); !ok || profit != 4000 {
		t.Errorf("Expected net_profit 4000, got %v", e.Data["net_profit"])
	}
}

func TestPublishOwnershipWarning(t *testing.T) {
	bus := NewEventBus()
	received := make(chan Event, 1)
	bus.Subscribe(EventOwnershipWarning, func(e Event) { received <- e })

	bus.PublishOwnershipWarning("c1", 97.5, "Ownership will reach 97.5% of 100%")

	e := waitForEvent(t, received)
	if e.Data["message"] != "Ownership will reach 97.5% of 100%" {
		t.Errorf("Unexpected message: %v", e.Data["message"])
	}
}
