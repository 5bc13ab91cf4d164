package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receiving-service/internal/broker"
	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"
	"receiving-service/internal/redisclient"
	"receiving-service/internal/store"
	"receiving-service/internal/util"

	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// LedgerService handles import ledger business logic
type LedgerService struct {
	store          store.Repository
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewLedgerService creates a new ledger service. redis may be nil to disable idempotency keys.
func NewLedgerService(
	store store.Repository,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *LedgerService {
	return &LedgerService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ListAll returns every record in insertion order
func (s *LedgerService) ListAll(ctx context.Context) ([]models.ImportRecord, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ListAll")
	defer span.End()

	records, err := s.store.ListImports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list import records: %w", err)
	}
	return records, nil
}

// Get returns one record by id
func (s *LedgerService) Get(ctx context.Context, id int64) (*models.ImportRecord, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Get")
	defer span.End()

	record, err := s.store.GetImport(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get import record: %w", err)
	}
	return record, nil
}

// Append stores a new record and returns it with its assigned id.
// The accepted quantity must already be derived; a mismatch is rejected.
// A repeated idempotency key returns the record created the first time.
func (s *LedgerService) Append(ctx context.Context, record models.ImportRecord, idempotencyKey string) (models.ImportRecord, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Append")
	defer span.End()

	if err := reconcile.CheckRecord(record); err != nil {
		recordValidationFailure(err)
		return models.ImportRecord{}, err
	}

	if idempotencyKey != "" && s.redis != nil {
		id, found, err := s.redis.GetIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return models.ImportRecord{}, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if found {
			existing, err := s.store.GetImport(ctx, id)
			if err == nil {
				s.logger.Info("Duplicate append request detected",
					zap.String("idempotency_key", idempotencyKey),
					zap.Int64("record_id", id))
				return *existing, nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return models.ImportRecord{}, fmt.Errorf("failed to load idempotent record: %w", err)
			}
		}
	}

	record.ID = 0
	if err := s.store.AppendImport(ctx, &record); err != nil {
		return models.ImportRecord{}, fmt.Errorf("failed to append import record: %w", err)
	}

	util.ImportRecordsTotal.WithLabelValues("append").Inc()
	s.logger.Info("Import record appended",
		zap.Int64("record_id", record.ID),
		zap.String("import_no", record.ImportNo),
		zap.String("barcode", record.Barcode),
		zap.Int("qty_accepted", record.QtyAccepted),
	)

	if idempotencyKey != "" && s.redis != nil {
		if err := s.redis.SetIdempotencyKey(ctx, idempotencyKey, record.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	if err := s.eventPublisher.PublishImportRecorded(ctx, record); err != nil {
		s.logger.Error("Failed to publish ImportRecorded event", zap.Error(err))
	}

	return record, nil
}

// Update replaces every field of the record with the given id
func (s *LedgerService) Update(ctx context.Context, id int64, record models.ImportRecord) (models.ImportRecord, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.Update")
	defer span.End()

	record.ID = id
	if err := reconcile.CheckRecord(record); err != nil {
		recordValidationFailure(err)
		return models.ImportRecord{}, err
	}

	if err := s.store.UpdateImport(ctx, record); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ImportRecord{}, err
		}
		return models.ImportRecord{}, fmt.Errorf("failed to update import record: %w", err)
	}

	util.ImportRecordsTotal.WithLabelValues("update").Inc()
	s.logger.Info("Import record updated", zap.Int64("record_id", id))

	if err := s.eventPublisher.PublishImportUpdated(ctx, record); err != nil {
		s.logger.Error("Failed to publish ImportUpdated event", zap.Error(err))
	}

	return record, nil
}

// UpdateFromForm re-validates raw form fields against the record's stored
// product snapshot and replaces the record
func (s *LedgerService) UpdateFromForm(ctx context.Context, id int64, form reconcile.Form) (models.ImportRecord, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return models.ImportRecord{}, err
	}

	record, err := reconcile.BuildRecord(reconcile.Snapshot(*existing), form)
	if err != nil {
		recordValidationFailure(err)
		return models.ImportRecord{}, err
	}
	return s.Update(ctx, id, record)
}

// Delete removes exactly one record
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.Delete")
	defer span.End()

	if err := s.store.DeleteImport(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete import record: %w", err)
	}

	util.ImportRecordsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("Import record deleted", zap.Int64("record_id", id))

	if err := s.eventPublisher.PublishImportDeleted(ctx, id); err != nil {
		s.logger.Error("Failed to publish ImportDeleted event", zap.Error(err))
	}

	return nil
}
