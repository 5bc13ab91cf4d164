package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventSink is anything that can ship a keyed event; *Producer is the production one
type EventSink interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events.
// A publisher without a sink drops every event.
type EventPublisher struct {
	sink EventSink
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sink EventSink) *EventPublisher {
	return &EventPublisher{sink: sink}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (ep *EventPublisher) publish(ctx context.Context, key string, event interface{}) error {
	if ep == nil || ep.sink == nil {
		return nil
	}
	return ep.sink.PublishEvent(ctx, key, event)
}

// PublishProductCreated publishes ProductCreated event
func (ep *EventPublisher) PublishProductCreated(ctx context.Context, product models.Product) error {
	event := &models.ProductEvent{BaseEvent: newBaseEvent(models.EventTypeProductCreated), Product: product}
	return ep.publish(ctx, "product-"+product.Barcode, event)
}

// PublishProductUpdated publishes ProductUpdated event
func (ep *EventPublisher) PublishProductUpdated(ctx context.Context, product models.Product) error {
	event := &models.ProductEvent{BaseEvent: newBaseEvent(models.EventTypeProductUpdated), Product: product}
	return ep.publish(ctx, "product-"+product.Barcode, event)
}

// PublishImportRecorded publishes ImportRecorded event
func (ep *EventPublisher) PublishImportRecorded(ctx context.Context, record models.ImportRecord) error {
	event := &models.ImportEvent{BaseEvent: newBaseEvent(models.EventTypeImportRecorded), Record: record}
	return ep.publish(ctx, "import-"+models.FormatRecordID(record.ID), event)
}

// PublishImportUpdated publishes ImportUpdated event
func (ep *EventPublisher) PublishImportUpdated(ctx context.Context, record models.ImportRecord) error {
	event := &models.ImportEvent{BaseEvent: newBaseEvent(models.EventTypeImportUpdated), Record: record}
	return ep.publish(ctx, "import-"+models.FormatRecordID(record.ID), event)
}

// PublishImportDeleted publishes ImportDeleted event
func (ep *EventPublisher) PublishImportDeleted(ctx context.Context, id int64) error {
	event := &models.ImportDeletedEvent{BaseEvent: newBaseEvent(models.EventTypeImportDeleted), RecordID: id}
	return ep.publish(ctx, "import-"+models.FormatRecordID(id), event)
}

// PublishCatalogWiped publishes CatalogWiped event
func (ep *EventPublisher) PublishCatalogWiped(ctx context.Context, products, records int64) error {
	event := &models.CatalogWipedEvent{
		BaseEvent:       newBaseEvent(models.EventTypeCatalogWiped),
		ProductsRemoved: products,
		RecordsRemoved:  records,
	}
	return ep.publish(ctx, "catalog", event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onProductChanged func(context.Context, *models.ProductEvent) error
	onImportChanged  func(context.Context, *models.ImportEvent) error
	onImportDeleted  func(context.Context, *models.ImportDeletedEvent) error
	onCatalogWiped   func(context.Context, *models.CatalogWipedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnProductChanged registers a handler for ProductCreated and ProductUpdated events
func (eh *EventHandler) OnProductChanged(handler func(context.Context, *models.ProductEvent) error) {
	eh.onProductChanged = handler
}

// OnImportChanged registers a handler for ImportRecorded and ImportUpdated events
func (eh *EventHandler) OnImportChanged(handler func(context.Context, *models.ImportEvent) error) {
	eh.onImportChanged = handler
}

// OnImportDeleted registers a handler for ImportDeleted events
func (eh *EventHandler) OnImportDeleted(handler func(context.Context, *models.ImportDeletedEvent) error) {
	eh.onImportDeleted = handler
}

// OnCatalogWiped registers a handler for CatalogWiped events
func (eh *EventHandler) OnCatalogWiped(handler func(context.Context, *models.CatalogWipedEvent) error) {
	eh.onCatalogWiped = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event", zap.String("type", baseEvent.EventType), zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeProductCreated, models.EventTypeProductUpdated:
		if eh.onProductChanged != nil {
			var event models.ProductEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onProductChanged(ctx, &event)
		}

	case models.EventTypeImportRecorded, models.EventTypeImportUpdated:
		if eh.onImportChanged != nil {
			var event models.ImportEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onImportChanged(ctx, &event)
		}

	case models.EventTypeImportDeleted:
		if eh.onImportDeleted != nil {
			var event models.ImportDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ImportDeleted event: %w", err)
			}
			return eh.onImportDeleted(ctx, &event)
		}

	case models.EventTypeCatalogWiped:
		if eh.onCatalogWiped != nil {
			var event models.CatalogWipedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CatalogWiped event: %w", err)
			}
			return eh.onCatalogWiped(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
