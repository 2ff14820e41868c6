package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/internal/storage/models"
	"github.com/marketing-insight/backend/pkg/logger"
)

var (
	ErrMissingParameter = errors.New("type and propertyId are required")

	// ErrNoSourceInsights means a comprehensive run found no prior insight
	// for any requested source type, so there is nothing to aggregate.
	ErrNoSourceInsights = errors.New("no source insights available")
)

// analysisWindow is the fixed lookback recorded on every insight,
// matching the four weeks the trend calculator covers.
const analysisWindow = 28 * 24 * time.Hour

type Store interface {
	TemplateStore
	InsertInsight(ins *models.Insight) error
	GetLatestInsight(insightType, propertyID string, comprehensive *bool) (*models.Insight, error)
	GetWeeklyTrend(propertyID, dataType string) (*models.WeeklyTrend, error)
}

type TrendCalculator interface {
	ComputeWeeklyTrend(ctx context.Context, propertyID, dataType string) (*models.WeeklyTrend, error)
}

type ModelResolver interface {
	ResolveModel(ctx context.Context, preferred []string) (string, error)
}

// Orchestrator is the top-level insight entry point. Each run resolves a
// prompt and a model, invokes the completion provider, and persists exactly
// one insight; any resolution or provider failure aborts the run before the
// insert.
type Orchestrator struct {
	store     Store
	trends    TrendCalculator
	templates *TemplateResolver
	resolver  ModelResolver
	provider  llm.Provider
	now       func() time.Time
}

func NewOrchestrator(store Store, trends TrendCalculator, resolver ModelResolver, provider llm.Provider) *Orchestrator {
	return &Orchestrator{
		store:     store,
		trends:    trends,
		templates: NewTemplateResolver(store),
		resolver:  resolver,
		provider:  provider,
		now:       time.Now,
	}
}

type GenerateRequest struct {
	Type               string
	PropertyID         string
	Model              string
	Prompt             string
	TemplateID         string
	Variables          map[string]interface{}
	WeeklyData         interface{}
	IsComprehensive    bool
	SourceInsightTypes []string
}

type Metadata struct {
	AnalysisStartDate  time.Time `json:"analysisStartDate"`
	AnalysisEndDate    time.Time `json:"analysisEndDate"`
	DataSourceTypes    []string  `json:"dataSourceTypes"`
	IsComprehensive    bool      `json:"isComprehensive"`
	SourceInsightCount int       `json:"sourceInsightCount"`
}

type GenerateResult struct {
	Insight  string          `json:"insight"`
	Saved    *models.Insight `json:"saved"`
	Metadata Metadata        `json:"metadata"`
}

func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Type == "" || req.PropertyID == "" {
		return nil, ErrMissingParameter
	}

	start := o.now()

	result, err := o.generate(ctx, req, start)
	metrics.InsightDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InsightGenerations.WithLabelValues(req.Type, "error").Inc()
		return nil, err
	}

	metrics.InsightGenerations.WithLabelValues(req.Type, "success").Inc()
	return result, nil
}

func (o *Orchestrator) generate(ctx context.Context, req GenerateRequest, now time.Time) (*GenerateResult, error) {
	var (
		weeklyData    interface{}
		trendSnapshot json.RawMessage
		sources       []string
		sourceIDs     []string
	)

	if req.IsComprehensive {
		sourceTypes := req.SourceInsightTypes
		if len(sourceTypes) == 0 {
			sourceTypes = defaultComprehensiveSources
		}
		aggregate, ids, unionSources, err := o.gatherSourceInsights(req.PropertyID, sourceTypes)
		if err != nil {
			return nil, err
		}
		weeklyData = aggregate
		sourceIDs = ids
		sources = unionSources
	} else {
		weeklyData = req.WeeklyData
		if weeklyData == nil {
			trend, err := o.trends.ComputeWeeklyTrend(ctx, req.PropertyID, req.Type)
			if err != nil {
				return nil, fmt.Errorf("failed to compute weekly trend: %w", err)
			}
			weeklyData = trend

			snapshot, err := json.Marshal(trend)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal trend snapshot: %w", err)
			}
			trendSnapshot = snapshot
		}
		sources = sourcesFor(Type(req.Type))
	}

	promptType := Type(req.Type)
	if req.IsComprehensive {
		promptType = TypeComprehensive
	}

	prompt, err := o.templates.ResolvePrompt(PromptRequest{
		Type:           promptType,
		ExplicitPrompt: req.Prompt,
		TemplateID:     req.TemplateID,
		Variables:      req.Variables,
		WeeklyData:     weeklyData,
	})
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model, err = o.resolver.ResolveModel(ctx, nil)
		if err != nil {
			return nil, err
		}
	}

	text, err := o.provider.Complete(ctx, prompt, weeklyData, model)
	if err != nil {
		return nil, fmt.Errorf("failed to generate insight: %w", err)
	}

	ins := &models.Insight{
		ID:                uuid.New().String(),
		Type:              req.Type,
		PropertyID:        req.PropertyID,
		Model:             model,
		Prompt:            prompt,
		Result:            text,
		DataSourceTypes:   sources,
		AnalysisStartDate: now.Add(-analysisWindow),
		AnalysisEndDate:   now,
		SourceInsightIDs:  sourceIDs,
		IsComprehensive:   req.IsComprehensive,
		WeeklyTrend:       trendSnapshot,
		CreatedAt:         now,
	}

	if err := o.store.InsertInsight(ins); err != nil {
		return nil, err
	}

	logger.Info("Insight generated",
		zap.String("insight_id", ins.ID),
		zap.String("type", ins.Type),
		zap.String("property_id", ins.PropertyID),
		zap.String("model", model),
		zap.Bool("comprehensive", ins.IsComprehensive),
	)

	return &GenerateResult{
		Insight: text,
		Saved:   ins,
		Metadata: Metadata{
			AnalysisStartDate:  ins.AnalysisStartDate,
			AnalysisEndDate:    ins.AnalysisEndDate,
			DataSourceTypes:    sources,
			IsComprehensive:    ins.IsComprehensive,
			SourceInsightCount: len(sourceIDs),
		},
	}, nil
}

// gatherSourceInsights collects the most recent single-source insight per
// requested type along with its weekly trend, keyed by type. Types with no
// prior insight are recorded as "no data" and contribute neither an id nor
// data sources. A run with nothing to aggregate fails.
func (o *Orchestrator) gatherSourceInsights(propertyID string, sourceTypes []string) (map[string]interface{}, []string, []string, error) {
	notComprehensive := false
	aggregate := make(map[string]interface{}, len(sourceTypes))
	var ids []string
	sourceSet := make(map[string]bool)
	var sources []string

	for _, srcType := range sourceTypes {
		latest, err := o.store.GetLatestInsight(srcType, propertyID, &notComprehensive)
		if err != nil {
			return nil, nil, nil, err
		}

		if latest == nil {
			aggregate[srcType] = map[string]interface{}{"status": "no data"}
			continue
		}

		entry := map[string]interface{}{
			"insight":     latest.Result,
			"model":       latest.Model,
			"generatedAt": latest.CreatedAt,
		}

		trend, err := o.store.GetWeeklyTrend(propertyID, srcType)
		if err != nil {
			return nil, nil, nil, err
		}
		if trend != nil {
			entry["weeklyTrend"] = trend
		}

		aggregate[srcType] = entry
		ids = append(ids, latest.ID)

		for _, s := range sourcesFor(Type(srcType)) {
			if !sourceSet[s] {
				sourceSet[s] = true
				sources = append(sources, s)
			}
		}
	}

	if len(ids) == 0 {
		return nil, nil, nil, fmt.Errorf("%w for property %s", ErrNoSourceInsights, propertyID)
	}

	return aggregate, ids, sources, nil
}

// Latest returns the most recent insight for the property, optionally
// narrowed by type and comprehensive flag. Returns nil when none exists.
func (o *Orchestrator) Latest(insightType, propertyID string, comprehensive *bool) (*models.Insight, error) {
	if propertyID == "" {
		return nil, ErrMissingParameter
	}
	return o.store.GetLatestInsight(insightType, propertyID, comprehensive)
}
