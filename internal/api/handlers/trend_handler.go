package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/storage/models"
	"github.com/marketing-insight/backend/pkg/logger"
)

type trendCalculator interface {
	ComputeWeeklyTrend(ctx context.Context, propertyID, dataType string) (*models.WeeklyTrend, error)
}

type TrendHandler struct {
	calculator trendCalculator
}

func NewTrendHandler(calculator trendCalculator) *TrendHandler {
	return &TrendHandler{
		calculator: calculator,
	}
}

// ComputeTrends computes week-over-week trends for each requested data type.
// A type whose computation fails maps to null rather than failing the batch.
func (h *TrendHandler) ComputeTrends(c *fiber.Ctx) error {
	var req struct {
		PropertyID string   `json:"propertyId"`
		DataTypes  []string `json:"dataTypes"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.PropertyID == "" || len(req.DataTypes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "propertyId and dataTypes are required",
		})
	}

	trends := make(map[string]*models.WeeklyTrend, len(req.DataTypes))
	for _, dataType := range req.DataTypes {
		trend, err := h.calculator.ComputeWeeklyTrend(c.Context(), req.PropertyID, dataType)
		if err != nil {
			logger.Warn("Trend computation failed",
				zap.String("property_id", req.PropertyID),
				zap.String("data_type", dataType),
				zap.Error(err),
			)
			trends[dataType] = nil
			continue
		}
		trends[dataType] = trend
	}

	return c.JSON(fiber.Map{
		"propertyId": req.PropertyID,
		"trends":     trends,
	})
}
