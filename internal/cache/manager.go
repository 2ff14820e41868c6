package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/internal/storage/models"
	"github.com/marketing-insight/backend/pkg/logger"
)

// Store is the slice of the datastore the cache manager owns. Upserts are
// atomic per composite key; concurrent refreshes resolve last-writer-wins.
type Store interface {
	GetCachedData(propertyID, dataType, period string) (*models.CacheRecord, error)
	UpsertCachedData(rec *models.CacheRecord) error
	DeleteExpiredCache(now time.Time) (int64, error)
	CachedDataCount() (int, error)
}

// FetchFunc loads fresh data from the metrics provider. A nil FetchFunc puts
// the read in cache-only mode: existing data or nothing, never a live fetch.
type FetchFunc func(ctx context.Context) (json.RawMessage, error)

type Result struct {
	Data        json.RawMessage `json:"data"`
	FromCache   bool            `json:"fromCache"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Stale       bool            `json:"stale,omitempty"`
}

type Manager struct {
	store            Store
	frequencies      map[string]int
	defaultFrequency int
	now              func() time.Time
}

func NewManager(store Store, frequencies map[string]int, defaultFrequency int) *Manager {
	if defaultFrequency <= 0 {
		defaultFrequency = 3600
	}
	return &Manager{
		store:            store,
		frequencies:      frequencies,
		defaultFrequency: defaultFrequency,
		now:              time.Now,
	}
}

// GetOrFetch is the read-through entry point. A valid cached record is
// returned as-is; an expired or missing one triggers fetch when a FetchFunc
// is supplied. A failed fetch downgrades to a stale serve when any record
// exists, and propagates otherwise. Returns (nil, nil) only in cache-only
// mode with nothing cached.
func (m *Manager) GetOrFetch(ctx context.Context, propertyID, dataType, period string, fetch FetchFunc) (*Result, error) {
	cached, err := m.store.GetCachedData(propertyID, dataType, period)
	if err != nil {
		return nil, err
	}

	now := m.now()

	if cached != nil && cached.ExpiresAt.After(now) {
		metrics.CacheHits.WithLabelValues(dataType).Inc()
		return &Result{
			Data:        cached.Data,
			FromCache:   true,
			LastUpdated: cached.LastUpdated,
		}, nil
	}

	if fetch == nil {
		if cached != nil {
			return &Result{
				Data:        cached.Data,
				FromCache:   true,
				LastUpdated: cached.LastUpdated,
			}, nil
		}
		return nil, nil
	}

	metrics.CacheMisses.WithLabelValues(dataType).Inc()

	fresh, err := fetch(ctx)
	if err != nil {
		metrics.CacheFetchFailures.WithLabelValues(dataType).Inc()
		logger.Warn("Upstream fetch failed",
			zap.String("property_id", propertyID),
			zap.String("data_type", dataType),
			zap.String("period", period),
			zap.Error(err),
		)
		if cached != nil {
			metrics.CacheStaleServes.WithLabelValues(dataType).Inc()
			return &Result{
				Data:        cached.Data,
				FromCache:   true,
				LastUpdated: cached.LastUpdated,
				Stale:       true,
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch %s data: %w", dataType, err)
	}

	frequency := m.frequencyFor(dataType)
	rec := &models.CacheRecord{
		PropertyID:      propertyID,
		DataType:        dataType,
		Period:          period,
		Data:            fresh,
		LastUpdated:     now,
		ExpiresAt:       now.Add(time.Duration(frequency) * time.Second),
		UpdateFrequency: frequency,
	}

	if err := m.store.UpsertCachedData(rec); err != nil {
		return nil, err
	}

	return &Result{
		Data:        fresh,
		FromCache:   false,
		LastUpdated: now,
	}, nil
}

// Refresh bypasses the validity check and fetches upstream immediately. A
// failed fetch still downgrades to whatever record exists, stale or not.
func (m *Manager) Refresh(ctx context.Context, propertyID, dataType, period string, fetch FetchFunc) (*Result, error) {
	cached, err := m.store.GetCachedData(propertyID, dataType, period)
	if err != nil {
		return nil, err
	}

	now := m.now()

	fresh, err := fetch(ctx)
	if err != nil {
		metrics.CacheFetchFailures.WithLabelValues(dataType).Inc()
		logger.Warn("Forced refresh failed",
			zap.String("property_id", propertyID),
			zap.String("data_type", dataType),
			zap.String("period", period),
			zap.Error(err),
		)
		if cached != nil {
			metrics.CacheStaleServes.WithLabelValues(dataType).Inc()
			return &Result{
				Data:        cached.Data,
				FromCache:   true,
				LastUpdated: cached.LastUpdated,
				Stale:       true,
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch %s data: %w", dataType, err)
	}

	frequency := m.frequencyFor(dataType)
	rec := &models.CacheRecord{
		PropertyID:      propertyID,
		DataType:        dataType,
		Period:          period,
		Data:            fresh,
		LastUpdated:     now,
		ExpiresAt:       now.Add(time.Duration(frequency) * time.Second),
		UpdateFrequency: frequency,
	}

	if err := m.store.UpsertCachedData(rec); err != nil {
		return nil, err
	}

	return &Result{
		Data:        fresh,
		FromCache:   false,
		LastUpdated: now,
	}, nil
}

func (m *Manager) frequencyFor(dataType string) int {
	if freq, ok := m.frequencies[dataType]; ok && freq > 0 {
		return freq
	}
	return m.defaultFrequency
}

// CleanupExpired removes cache records past their expiry. Records that were
// refreshed since carry a future expiry and survive.
func (m *Manager) CleanupExpired() error {
	deleted, err := m.store.DeleteExpiredCache(m.now())
	if err != nil {
		return err
	}

	metrics.CacheRecordsSwept.Add(float64(deleted))

	remaining, err := m.store.CachedDataCount()
	if err != nil {
		logger.Warn("Failed to count cache records after sweep", zap.Error(err))
		return nil
	}

	logger.Info("Expired cache cleaned up",
		zap.Int64("deleted", deleted),
		zap.Int("remaining", remaining),
	)
	return nil
}
