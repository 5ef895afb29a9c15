package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventPartnershipCreated     EventType = "PARTNERSHIP_CREATED"
	EventPartnershipUpdated     EventType = "PARTNERSHIP_UPDATED"
	EventPartnershipDeactivated EventType = "PARTNERSHIP_DEACTIVATED"
	EventOwnershipWarning       EventType = "OWNERSHIP_WARNING"
	EventProfitCalculated       EventType = "PROFIT_CALCULATED"
	EventDistributionAvailable  EventType = "DISTRIBUTION_AVAILABLE"
	EventPaymentReceived        EventType = "PAYMENT_RECEIVED"
	EventDistributionPaid       EventType = "DISTRIBUTION_PAID"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishDistributionAvailable publishes a distribution available event
func (eb *EventBus) PublishDistributionAvailable(companyID, distributionID, month string, netProfit float64, shareCount int) {
	eb.Publish(Event{
		Type: EventDistributionAvailable,
		Data: map[string]interface{}{
			"company_id":      companyID,
			"distribution_id": distributionID,
			"month":           month,
			"net_profit":      netProfit,
			"share_count":     shareCount,
		},
	})
}

// PublishPaymentReceived publishes a payment received event for a partner share
func (eb *EventBus) PublishPaymentReceived(shareID, distributionID, partnerID string, amount float64) {
	eb.Publish(Event{
		Type: EventPaymentReceived,
		Data: map[string]interface{}{
			"share_id":        shareID,
			"distribution_id": distributionID,
			"partner_id":      partnerID,
			"amount":          amount,
		},
	})
}

// PublishDistributionPaid publishes a distribution fully paid event
func (eb *EventBus) PublishDistributionPaid(distributionID, companyID string) {
	eb.Publish(Event{
		Type: EventDistributionPaid,
		Data: map[string]interface{}{
			"distribution_id": distributionID,
			"company_id":      companyID,
		},
	})
}

// PublishOwnershipWarning publishes an advisory ownership warning
func (eb *EventBus) PublishOwnershipWarning(companyID string, totalPercentage float64, message string) {
	eb.Publish(Event{
		Type: EventOwnershipWarning,
		Data: map[string]interface{}{
			"company_id":       companyID,
			"total_percentage": totalPercentage,
			"message":          message,
		},
	})
}

// PublishProfitCalculated publishes a profit calculated event
func (eb *EventBus) PublishProfitCalculated(companyID, distributionID, month string, netProfit float64) {
	eb.Publish(Event{
		Type: EventProfitCalculated,
		Data: map[string]interface{}{
			"company_id":      companyID,
			"distribution_id": distributionID,
			"month":           month,
			"net_profit":      netProfit,
		},
	})
}
