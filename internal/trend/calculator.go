package trend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/cache"
	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/internal/storage/models"
	"github.com/marketing-insight/backend/pkg/logger"
)

// trendMetrics is the fixed metric set trended week over week.
var trendMetrics = []string{"sessions", "users", "pageViews", "conversions", "revenue"}

const trendWeeks = 4

type cacheReader interface {
	GetOrFetch(ctx context.Context, propertyID, dataType, period string, fetch cache.FetchFunc) (*cache.Result, error)
}

type Store interface {
	UpsertWeeklyTrend(trend *models.WeeklyTrend) error
}

type Calculator struct {
	cache     cacheReader
	store     Store
	extractor MetricExtractor
	now       func() time.Time
}

func NewCalculator(cacheManager cacheReader, store Store, extractor MetricExtractor) *Calculator {
	return &Calculator{
		cache:     cacheManager,
		store:     store,
		extractor: extractor,
		now:       time.Now,
	}
}

// ComputeWeeklyTrend reads the four trailing 7-day windows for the pair in
// cache-only mode and computes week-over-week percentage deltas for the
// fixed metric set. Weeks no other path has cached stay empty; trends only
// reflect already-observed data.
func (c *Calculator) ComputeWeeklyTrend(ctx context.Context, propertyID, dataType string) (*models.WeeklyTrend, error) {
	start := c.now()

	weeks := make([]models.WeekSnapshot, trendWeeks)
	var wg sync.WaitGroup

	for i := 0; i < trendWeeks; i++ {
		weekEnd := start.AddDate(0, 0, -i*7)
		weekStart := weekEnd.AddDate(0, 0, -6)
		period := fmt.Sprintf("%s-%s", weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))

		weeks[i] = models.WeekSnapshot{
			WeekNumber: i + 1,
			StartDate:  weekStart,
			EndDate:    weekEnd,
		}

		wg.Add(1)
		go func(i int, period string) {
			defer wg.Done()

			result, err := c.cache.GetOrFetch(ctx, propertyID, dataType, period, nil)
			if err != nil {
				logger.Warn("Weekly cache lookup failed",
					zap.String("property_id", propertyID),
					zap.String("data_type", dataType),
					zap.String("period", period),
					zap.Error(err),
				)
				return
			}
			if result != nil {
				weeks[i].Data = result.Data
			}
		}(i, period)
	}

	wg.Wait()

	var changeRates []models.ChangeRate
	for i := 0; i < trendWeeks-1; i++ {
		current := weeks[i]
		previous := weeks[i+1]

		if current.Data == nil || previous.Data == nil {
			continue
		}

		changeRates = append(changeRates, models.ChangeRate{
			FromWeek: i + 2,
			ToWeek:   i + 1,
			Changes:  c.changeRate(current.Data, previous.Data),
		})
	}

	trend := &models.WeeklyTrend{
		PropertyID:   propertyID,
		DataType:     dataType,
		Weeks:        weeks,
		ChangeRates:  changeRates,
		CalculatedAt: start,
	}

	if err := c.store.UpsertWeeklyTrend(trend); err != nil {
		return nil, err
	}

	metrics.TrendComputations.WithLabelValues(dataType).Inc()
	metrics.TrendComputeDuration.Observe(time.Since(start).Seconds())

	logger.Info("Weekly trend computed",
		zap.String("property_id", propertyID),
		zap.String("data_type", dataType),
		zap.Int("change_rates", len(changeRates)),
	)

	return trend, nil
}

// changeRate computes per-metric percentage deltas between two weekly
// payloads. A metric missing on either side, or a zero previous value,
// produces a nil delta.
func (c *Calculator) changeRate(currentData, previousData []byte) map[string]*float64 {
	changes := make(map[string]*float64, len(trendMetrics))

	for _, metric := range trendMetrics {
		current := c.extractor.Extract(currentData, metric)
		previous := c.extractor.Extract(previousData, metric)

		if current != nil && previous != nil && *previous != 0 {
			delta := (*current - *previous) / *previous * 100
			changes[metric] = &delta
		} else {
			changes[metric] = nil
		}
	}

	return changes
}
