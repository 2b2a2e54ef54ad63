package events

import (
	"context"
	"sync"
	"time"

	"pricing-table-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventProductSaved is emitted when a product is created or updated
	EventProductSaved EventType = "product.saved"
	// EventRuleSetsSaved is emitted when a product's pricing rules are replaced
	EventRuleSetsSaved EventType = "ruleset.saved"
	// EventTableRendered is emitted when a pricing table is computed for a viewer
	EventTableRendered EventType = "table.rendered"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      any
}

// ProductSavedData contains data for product saved events.
type ProductSavedData struct {
	Product models.Product
}

// RuleSetsSavedData contains data for rule-set saved events.
type RuleSetsSavedData struct {
	ProductID int64
	RuleSets  []models.RuleSet
}

// TableRenderedData contains data for table rendered events.
type TableRenderedData struct {
	ProductID  int64
	Viewer     string // audience fingerprint, not an identity
	RowCount   int
	RenderedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data any) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Execute handlers asynchronously to avoid blocking the render path
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishProductSaved publishes a product saved event.
func (m *Manager) PublishProductSaved(ctx context.Context, product models.Product) {
	m.Publish(ctx, EventProductSaved, ProductSavedData{Product: product})
}

// PublishRuleSetsSaved publishes a rule-set saved event.
func (m *Manager) PublishRuleSetsSaved(ctx context.Context, productID int64, ruleSets []models.RuleSet) {
	m.Publish(ctx, EventRuleSetsSaved, RuleSetsSavedData{
		ProductID: productID,
		RuleSets:  ruleSets,
	})
}

// PublishTableRendered publishes a table rendered event.
func (m *Manager) PublishTableRendered(ctx context.Context, productID int64, viewerFingerprint string, rowCount int) {
	m.Publish(ctx, EventTableRendered, TableRenderedData{
		ProductID:  productID,
		Viewer:     viewerFingerprint,
		RowCount:   rowCount,
		RenderedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
