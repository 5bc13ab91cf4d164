package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"receiving-service/internal/broker"
	"receiving-service/internal/models"
	"receiving-service/internal/redisclient"
	"receiving-service/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaySource hands a fixed list of messages to the handler and then stops
type replaySource struct {
	messages []kafka.Message
	closed   bool
}

func (s *replaySource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *replaySource) Close() error {
	s.closed = true
	return nil
}

// captureSink turns published events into kafka messages
type captureSink struct {
	messages []kafka.Message
}

func (s *captureSink) PublishEvent(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.messages = append(s.messages, kafka.Message{Key: []byte(key), Value: data})
	return nil
}

func TestCacheWorkerInvalidatesProducts(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	widget := models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}
	gadget := models.Product{Barcode: "456", SKU: "B2", Brand: "ACME", Name: "Gadget"}
	require.NoError(t, cache.SetProduct(ctx, widget, time.Minute))
	require.NoError(t, cache.SetProduct(ctx, gadget, time.Minute))

	sink := &captureSink{}
	publisher := broker.NewEventPublisher(sink)
	require.NoError(t, publisher.PublishProductUpdated(ctx, widget))
	require.NoError(t, publisher.PublishImportRecorded(ctx, models.ImportRecord{ID: 1, ImportNo: "IMP-1"}))

	source := &replaySource{messages: sink.messages}
	w := NewCacheWorker(source, cache)
	require.NoError(t, w.Start(ctx))

	assert.False(t, mr.Exists("product:123"))
	assert.True(t, mr.Exists("product:456"))

	require.NoError(t, publisher.PublishCatalogWiped(ctx, 2, 1))
	last := sink.messages[len(sink.messages)-1]
	require.NoError(t, w.Handler().HandleMessage(ctx, last))
	assert.False(t, mr.Exists("product:456"))

	require.NoError(t, w.Stop())
	assert.True(t, source.closed)
}

func TestCacheWorkerCountsLedgerEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	recorded := util.LedgerEventsConsumedTotal.WithLabelValues(models.EventTypeImportRecorded)
	updated := util.LedgerEventsConsumedTotal.WithLabelValues(models.EventTypeImportUpdated)
	deleted := util.LedgerEventsConsumedTotal.WithLabelValues(models.EventTypeImportDeleted)
	beforeRecorded := testutil.ToFloat64(recorded)
	beforeUpdated := testutil.ToFloat64(updated)
	beforeDeleted := testutil.ToFloat64(deleted)

	sink := &captureSink{}
	publisher := broker.NewEventPublisher(sink)
	record := models.ImportRecord{ID: 7, ImportNo: "IMP-7"}
	require.NoError(t, publisher.PublishImportRecorded(ctx, record))
	require.NoError(t, publisher.PublishImportUpdated(ctx, record))
	require.NoError(t, publisher.PublishImportDeleted(ctx, record.ID))

	w := NewCacheWorker(&replaySource{messages: sink.messages}, cache)
	require.NoError(t, w.Start(ctx))

	assert.Equal(t, beforeRecorded+1, testutil.ToFloat64(recorded))
	assert.Equal(t, beforeUpdated+1, testutil.ToFloat64(updated))
	assert.Equal(t, beforeDeleted+1, testutil.ToFloat64(deleted))
}
