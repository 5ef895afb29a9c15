package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"isp-billing-platform/internal/events"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyDistribution     NotificationType = "distribution"
	NotifyPayment          NotificationType = "payment"
	NotifyDistributionDone NotificationType = "distribution_done"
	NotifyOwnership        NotificationType = "ownership"
	NotifyError            NotificationType = "error"
	NotifyInfo             NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	CompanyID string
	PartnerID string
	Amount    float64
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendDistributionAvailable announces a new distribution to partners
func (m *Manager) SendDistributionAvailable(companyID, distributionID, month string, netProfit float64, shareCount int) error {
	return m.Send(&Notification{
		Type:      NotifyDistribution,
		Title:     fmt.Sprintf("Distribution ready: %s", month),
		Message:   fmt.Sprintf("Net profit %.2f distributed across %d partners", netProfit, shareCount),
		CompanyID: companyID,
		Amount:    netProfit,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"distribution_id": distributionID,
			"month":           month,
			"share_count":     shareCount,
		},
	})
}

// SendPaymentReceived confirms a share payout to a partner
func (m *Manager) SendPaymentReceived(partnerID, shareID string, amount float64) error {
	return m.Send(&Notification{
		Type:      NotifyPayment,
		Title:     "Share payment received",
		Message:   fmt.Sprintf("Partner %s was paid %.2f", partnerID, amount),
		PartnerID: partnerID,
		Amount:    amount,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"share_id": shareID,
		},
	})
}

// SendDistributionPaid announces a fully settled distribution
func (m *Manager) SendDistributionPaid(companyID, distributionID string) error {
	return m.Send(&Notification{
		Type:      NotifyDistributionDone,
		Title:     "Distribution fully paid",
		Message:   fmt.Sprintf("All partner shares of distribution %s are settled", distributionID),
		CompanyID: companyID,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"distribution_id": distributionID,
		},
	})
}

// SendOwnershipWarning relays an advisory ownership warning
func (m *Manager) SendOwnershipWarning(companyID, message string) error {
	return m.Send(&Notification{
		Type:      NotifyOwnership,
		Title:     "Ownership warning",
		Message:   message,
		CompanyID: companyID,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// HandleEvent maps bus events to notifications. Registered on the event bus
// at startup; failures are logged, never propagated.
func (m *Manager) HandleEvent(e events.Event) {
	var err error
	switch e.Type {
	case events.EventDistributionAvailable:
		err = m.SendDistributionAvailable(
			stringField(e.Data, "company_id"),
			stringField(e.Data, "distribution_id"),
			stringField(e.Data, "month"),
			floatField(e.Data, "net_profit"),
			intField(e.Data, "share_count"),
		)
	case events.EventPaymentReceived:
		err = m.SendPaymentReceived(
			stringField(e.Data, "partner_id"),
			stringField(e.Data, "share_id"),
			floatField(e.Data, "amount"),
		)
	case events.EventDistributionPaid:
		err = m.SendDistributionPaid(
			stringField(e.Data, "company_id"),
			stringField(e.Data, "distribution_id"),
		)
	case events.EventOwnershipWarning:
		err = m.SendOwnershipWarning(
			stringField(e.Data, "company_id"),
			stringField(e.Data, "message"),
		)
	}
	if err != nil {
		log.Printf("[NOTIFICATION] Failed to deliver %s notification: %v", e.Type, err)
	}
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func floatField(data map[string]interface{}, key string) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return 0
}

func intField(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// =============================================================================
// WEBHOOK NOTIFIER
// =============================================================================

// WebhookNotifier posts notifications as JSON to a configured endpoint
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// WebhookConfig holds webhook configuration
type WebhookConfig struct {
	URL     string
	Enabled bool
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     config.URL,
		enabled: config.Enabled && config.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookNotifier) Send(notification *Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      notification.Type,
		"title":     notification.Title,
		"message":   notification.Message,
		"timestamp": notification.Timestamp.Format(time.RFC3339),
	}
	if notification.CompanyID != "" {
		payload["company_id"] = notification.CompanyID
	}
	if notification.PartnerID != "" {
		payload["partner_id"] = notification.PartnerID
	}
	if notification.Amount != 0 {
		payload["amount"] = notification.Amount
	}
	if len(notification.Extra) > 0 {
		payload["extra"] = notification.Extra
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
