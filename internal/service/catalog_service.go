package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"receiving-service/internal/broker"
	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"
	"receiving-service/internal/redisclient"
	"receiving-service/internal/store"
	"receiving-service/internal/util"

	"github.com/jszwec/csvutil"
	"go.uber.org/zap"
)

// CatalogService handles product catalog business logic
type CatalogService struct {
	store          store.Repository
	redis          *redisclient.Client
	cacheTTL       time.Duration
	eventPublisher *broker.EventPublisher
	guard          *PassphraseGuard
	logger         *zap.Logger
}

// NewCatalogService creates a new catalog service. redis may be nil to disable the product cache.
func NewCatalogService(
	store store.Repository,
	redis *redisclient.Client,
	cacheTTL time.Duration,
	eventPublisher *broker.EventPublisher,
	guard *PassphraseGuard,
) *CatalogService {
	return &CatalogService{
		store:          store,
		redis:          redis,
		cacheTTL:       cacheTTL,
		eventPublisher: eventPublisher,
		guard:          guard,
		logger:         util.GetLogger(),
	}
}

// FindByBarcode looks up a product, reading through the cache
func (s *CatalogService) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.FindByBarcode")
	defer span.End()

	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		util.ProductLookupsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("empty barcode: %w", models.ErrNotFound)
	}

	if s.redis != nil {
		cached, err := s.redis.GetProduct(ctx, barcode)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.String("barcode", barcode), zap.Error(err))
		} else if cached != nil {
			util.ProductLookupsTotal.WithLabelValues("cache_hit").Inc()
			return cached, nil
		}
	}

	product, err := s.store.GetProduct(ctx, barcode)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			util.ProductLookupsTotal.WithLabelValues("miss").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	util.ProductLookupsTotal.WithLabelValues("hit").Inc()

	if s.redis != nil {
		if err := s.redis.SetProduct(ctx, *product, s.cacheTTL); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("barcode", barcode), zap.Error(err))
		}
	}

	return product, nil
}

// CreateProduct adds a product. An existing barcode is left untouched and reported as ignored.
func (s *CatalogService) CreateProduct(ctx context.Context, product models.Product) (models.CreateOutcome, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	product, err := reconcile.ValidateProduct(product)
	if err != nil {
		recordValidationFailure(err)
		return "", err
	}

	outcome, err := s.store.CreateProduct(ctx, product)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}

	if outcome == models.OutcomeIgnored {
		util.ProductsIgnoredTotal.Inc()
		s.logger.Info("Duplicate product ignored", zap.String("barcode", product.Barcode))
		return outcome, nil
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created", zap.String("barcode", product.Barcode), zap.String("sku", product.SKU))

	if err := s.eventPublisher.PublishProductCreated(ctx, product); err != nil {
		s.logger.Error("Failed to publish ProductCreated event", zap.Error(err))
	}

	return outcome, nil
}

// UpdateProduct edits an existing product; it never creates one
func (s *CatalogService) UpdateProduct(ctx context.Context, product models.Product) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := reconcile.ValidateProduct(product)
	if err != nil {
		recordValidationFailure(err)
		return err
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	util.ProductsUpdatedTotal.Inc()
	s.logger.Info("Product updated", zap.String("barcode", product.Barcode))

	if s.redis != nil {
		if err := s.redis.InvalidateProduct(ctx, product.Barcode); err != nil {
			s.logger.Warn("Product cache invalidation failed", zap.String("barcode", product.Barcode), zap.Error(err))
		}
	}

	if err := s.eventPublisher.PublishProductUpdated(ctx, product); err != nil {
		s.logger.Error("Failed to publish ProductUpdated event", zap.Error(err))
	}

	return nil
}

// ImportRowError describes one rejected row of a bulk import
type ImportRowError struct {
	Line  int    `json:"line"`
	Field string `json:"field"`
}

// ImportSummary reports the outcome of a bulk product import
type ImportSummary struct {
	Created  int              `json:"created"`
	Ignored  int              `json:"ignored"`
	Rejected []ImportRowError `json:"rejected,omitempty"`
}

// ImportCSV creates products from a CSV with barcode, sku, brand and name columns.
// Rows are handled like individual creates; invalid rows are skipped and reported.
func (s *CatalogService) ImportCSV(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ImportCSV")
	defer span.End()

	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}

	var rows []models.Product
	if err := decoder.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode CSV: %w", err)
	}

	summary := &ImportSummary{}
	for i, row := range rows {
		outcome, err := s.CreateProduct(ctx, row)
		if err != nil {
			field, ok := models.ValidationField(err)
			if !ok {
				return summary, err
			}
			// header is line 1
			summary.Rejected = append(summary.Rejected, ImportRowError{Line: i + 2, Field: field})
			continue
		}
		if outcome == models.OutcomeCreated {
			summary.Created++
		} else {
			summary.Ignored++
		}
	}

	s.logger.Info("Product import finished",
		zap.Int("created", summary.Created),
		zap.Int("ignored", summary.Ignored),
		zap.Int("rejected", len(summary.Rejected)),
	)
	return summary, nil
}

// WipeAll clears every product and import record once the passphrase matches
func (s *CatalogService) WipeAll(ctx context.Context, passphrase string) (store.WipeResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.WipeAll")
	defer span.End()

	if err := s.guard.Check(passphrase); err != nil {
		util.WipeAttemptsTotal.WithLabelValues("unauthorized").Inc()
		s.logger.Warn("Wipe rejected: passphrase mismatch")
		return store.WipeResult{}, err
	}

	res, err := s.store.WipeAll(ctx)
	if err != nil {
		util.WipeAttemptsTotal.WithLabelValues("error").Inc()
		return store.WipeResult{}, fmt.Errorf("failed to wipe catalog: %w", err)
	}
	util.WipeAttemptsTotal.WithLabelValues("ok").Inc()

	s.logger.Warn("Catalog and ledger wiped",
		zap.Int64("products", res.Products),
		zap.Int64("records", res.Records),
	)

	if s.redis != nil {
		if err := s.redis.FlushProducts(ctx); err != nil {
			s.logger.Warn("Product cache flush failed", zap.Error(err))
		}
	}

	if err := s.eventPublisher.PublishCatalogWiped(ctx, res.Products, res.Records); err != nil {
		s.logger.Error("Failed to publish CatalogWiped event", zap.Error(err))
	}

	return res, nil
}

func recordValidationFailure(err error) {
	if field, ok := models.ValidationField(err); ok {
		util.ValidationFailuresTotal.WithLabelValues(field).Inc()
	}
}
