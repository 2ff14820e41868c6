package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/cache"
	"github.com/marketing-insight/backend/internal/metricsource"
	"github.com/marketing-insight/backend/pkg/logger"
)

type CacheHandler struct {
	cacheManager *cache.Manager
	source       *metricsource.Client
}

func NewCacheHandler(cacheManager *cache.Manager, source *metricsource.Client) *CacheHandler {
	return &CacheHandler{
		cacheManager: cacheManager,
		source:       source,
	}
}

// GetCachedData serves one analytics report through the cache. With
// forceRefresh the upstream is consulted first and the stored copy only
// answers when that fails.
func (h *CacheHandler) GetCachedData(c *fiber.Ctx) error {
	propertyID := c.Query("propertyId")
	dataType := c.Query("dataType")
	period := c.Query("period")
	forceRefresh := c.QueryBool("forceRefresh")

	if propertyID == "" || dataType == "" || period == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "propertyId, dataType and period are required",
		})
	}

	fetch := func(ctx context.Context) (json.RawMessage, error) {
		return h.source.Fetch(ctx, propertyID, dataType, period)
	}

	var (
		result *cache.Result
		err    error
	)
	if forceRefresh {
		result, err = h.cacheManager.Refresh(c.Context(), propertyID, dataType, period, fetch)
	} else {
		result, err = h.cacheManager.GetOrFetch(c.Context(), propertyID, dataType, period, fetch)
	}
	if err != nil {
		logger.Error("Failed to load analytics data",
			zap.String("property_id", propertyID),
			zap.String("data_type", dataType),
			zap.String("period", period),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load analytics data",
		})
	}

	return c.JSON(fiber.Map{
		"data":        result.Data,
		"fromCache":   result.FromCache,
		"lastUpdated": result.LastUpdated,
		"stale":       result.Stale,
	})
}
