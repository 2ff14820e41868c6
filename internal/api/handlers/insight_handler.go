package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/insight"
	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/pkg/logger"
)

type InsightHandler struct {
	orchestrator *insight.Orchestrator
}

func NewInsightHandler(orchestrator *insight.Orchestrator) *InsightHandler {
	return &InsightHandler{
		orchestrator: orchestrator,
	}
}

func (h *InsightHandler) GenerateInsight(c *fiber.Ctx) error {
	var req struct {
		Type               string                 `json:"type"`
		PropertyID         string                 `json:"propertyId"`
		Model              string                 `json:"model"`
		Prompt             string                 `json:"prompt"`
		TemplateID         string                 `json:"templateId"`
		Variables          map[string]interface{} `json:"variables"`
		WeeklyData         interface{}            `json:"weeklyData"`
		IsComprehensive    bool                   `json:"isComprehensive"`
		SourceInsightTypes []string               `json:"sourceInsightTypes"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.orchestrator.Generate(c.Context(), insight.GenerateRequest{
		Type:               req.Type,
		PropertyID:         req.PropertyID,
		Model:              req.Model,
		Prompt:             req.Prompt,
		TemplateID:         req.TemplateID,
		Variables:          req.Variables,
		WeeklyData:         req.WeeklyData,
		IsComprehensive:    req.IsComprehensive,
		SourceInsightTypes: req.SourceInsightTypes,
	})
	if err != nil {
		return h.mapGenerateError(c, err)
	}

	return c.JSON(result)
}

func (h *InsightHandler) mapGenerateError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, insight.ErrMissingParameter):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, insight.ErrTemplateNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Prompt template not found",
		})
	case errors.Is(err, insight.ErrTemplateInactive):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Prompt template is inactive",
		})
	case errors.Is(err, insight.ErrNoSourceInsights):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "No source insights available for comprehensive analysis",
		})
	case errors.Is(err, llm.ErrNoModelPriority), errors.Is(err, llm.ErrNoUsableModel):
		logger.Error("Model resolution failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "No usable model available",
		})
	default:
		logger.Error("Failed to generate insight", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate insight",
		})
	}
}

// GetLatestInsight returns the newest stored insight for a property,
// optionally filtered by type and by the comprehensive flag.
func (h *InsightHandler) GetLatestInsight(c *fiber.Ctx) error {
	propertyID := c.Query("propertyId")
	insightType := c.Query("type")

	if propertyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "propertyId is required",
		})
	}

	var comprehensive *bool
	if raw := c.Query("comprehensive"); raw != "" {
		v := raw == "true" || raw == "1"
		comprehensive = &v
	}

	latest, err := h.orchestrator.Latest(insightType, propertyID, comprehensive)
	if err != nil {
		logger.Error("Failed to load latest insight", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load latest insight",
		})
	}

	if latest == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No insight found",
		})
	}

	return c.JSON(latest)
}
