package worker

import (
	"context"

	"receiving-service/internal/broker"
	"receiving-service/internal/models"
	"receiving-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource delivers catalog topic messages to a handler
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ProductCache is the part of the redis client the cache worker needs
type ProductCache interface {
	InvalidateProduct(ctx context.Context, barcode string) error
	FlushProducts(ctx context.Context) error
}

// CacheWorker keeps the product cache of every replica in step with catalog
// events and counts the ledger events it sees
type CacheWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	cache        ProductCache
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache worker
func NewCacheWorker(consumer MessageSource, cache ProductCache) *CacheWorker {
	w := &CacheWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnProductChanged(w.handleProductChanged)
	w.eventHandler.OnCatalogWiped(w.handleCatalogWiped)
	w.eventHandler.OnImportChanged(w.handleImportChanged)
	w.eventHandler.OnImportDeleted(w.handleImportDeleted)

	return w
}

// Handler exposes the routing handler
func (w *CacheWorker) Handler() *broker.EventHandler {
	return w.eventHandler
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping cache worker")
	return w.consumer.Close()
}

func (w *CacheWorker) handleProductChanged(ctx context.Context, event *models.ProductEvent) error {
	w.logger.Debug("Invalidating cached product",
		zap.String("barcode", event.Product.Barcode),
		zap.String("event_type", event.EventType),
	)
	return w.cache.InvalidateProduct(ctx, event.Product.Barcode)
}

func (w *CacheWorker) handleCatalogWiped(ctx context.Context, event *models.CatalogWipedEvent) error {
	w.logger.Info("Catalog wiped, flushing product cache",
		zap.Int64("products_removed", event.ProductsRemoved),
		zap.Int64("records_removed", event.RecordsRemoved),
	)
	return w.cache.FlushProducts(ctx)
}

func (w *CacheWorker) handleImportChanged(ctx context.Context, event *models.ImportEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Debug("Ledger record changed",
		zap.String("event_type", event.EventType),
		zap.Int64("record_id", event.Record.ID),
	)
	return nil
}

func (w *CacheWorker) handleImportDeleted(ctx context.Context, event *models.ImportDeletedEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(event.EventType).Inc()
	w.logger.Debug("Ledger record deleted", zap.Int64("record_id", event.RecordID))
	return nil
}
