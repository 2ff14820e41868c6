package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/internal/storage/models"
)

type fakeInsightStore struct {
	templates map[string]*models.PromptTemplate
	latest    map[string]*models.Insight
	trends    map[string]*models.WeeklyTrend
	inserted  []*models.Insight
	insertErr error
}

func newFakeInsightStore() *fakeInsightStore {
	return &fakeInsightStore{
		templates: make(map[string]*models.PromptTemplate),
		latest:    make(map[string]*models.Insight),
		trends:    make(map[string]*models.WeeklyTrend),
	}
}

func (f *fakeInsightStore) GetPromptTemplate(id string) (*models.PromptTemplate, error) {
	return f.templates[id], nil
}

func (f *fakeInsightStore) InsertInsight(ins *models.Insight) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, ins)
	return nil
}

func (f *fakeInsightStore) GetLatestInsight(insightType, propertyID string, comprehensive *bool) (*models.Insight, error) {
	return f.latest[insightType], nil
}

func (f *fakeInsightStore) GetWeeklyTrend(propertyID, dataType string) (*models.WeeklyTrend, error) {
	return f.trends[dataType], nil
}

type fakeTrendCalc struct {
	trend *models.WeeklyTrend
	err   error
	calls int
}

func (f *fakeTrendCalc) ComputeWeeklyTrend(ctx context.Context, propertyID, dataType string) (*models.WeeklyTrend, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.trend, nil
}

type fakeModelResolver struct {
	model string
	err   error
}

func (f *fakeModelResolver) ResolveModel(ctx context.Context, preferred []string) (string, error) {
	return f.model, f.err
}

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
	lastModel  string
	calls      int
}

func (f *fakeCompleter) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return nil, nil
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, contextData interface{}, model string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastModel = model
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testOrchestrator(store *fakeInsightStore, trends *fakeTrendCalc, resolver *fakeModelResolver, provider *fakeCompleter, at time.Time) *Orchestrator {
	o := NewOrchestrator(store, trends, resolver, provider)
	o.now = func() time.Time { return at }
	return o
}

func TestGenerateRequiresTypeAndProperty(t *testing.T) {
	o := testOrchestrator(newFakeInsightStore(), &fakeTrendCalc{}, &fakeModelResolver{}, &fakeCompleter{}, time.Now())

	_, err := o.Generate(context.Background(), GenerateRequest{Type: "sessions"})
	assert.ErrorIs(t, err, ErrMissingParameter)

	_, err = o.Generate(context.Background(), GenerateRequest{PropertyID: "prop-1"})
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestGenerateSingleSourceComputesTrendAndPersists(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeInsightStore()
	trends := &fakeTrendCalc{trend: &models.WeeklyTrend{
		PropertyID: "prop-1",
		DataType:   "sessions",
	}}
	provider := &fakeCompleter{response: "sessions are trending up"}

	o := testOrchestrator(store, trends, &fakeModelResolver{model: "gemini-1.5-pro"}, provider, now)

	result, err := o.Generate(context.Background(), GenerateRequest{
		Type:       "sessions",
		PropertyID: "prop-1",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, trends.calls)
	assert.Equal(t, "sessions are trending up", result.Insight)
	assert.Equal(t, []string{SourceAnalytics}, result.Metadata.DataSourceTypes)
	assert.False(t, result.Metadata.IsComprehensive)
	assert.Zero(t, result.Metadata.SourceInsightCount)
	assert.Equal(t, now.Add(-28*24*time.Hour), result.Metadata.AnalysisStartDate)
	assert.Equal(t, now, result.Metadata.AnalysisEndDate)

	require.Len(t, store.inserted, 1)
	saved := store.inserted[0]
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "sessions", saved.Type)
	assert.Equal(t, "gemini-1.5-pro", saved.Model)
	assert.Equal(t, "sessions are trending up", saved.Result)
	assert.NotEmpty(t, saved.WeeklyTrend)
	assert.False(t, saved.IsComprehensive)
}

func TestGenerateUsesProvidedDataAndModel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeInsightStore()
	trends := &fakeTrendCalc{err: errors.New("should not be called")}
	provider := &fakeCompleter{response: "ok"}

	o := testOrchestrator(store, trends, &fakeModelResolver{err: errors.New("should not be called")}, provider, now)

	_, err := o.Generate(context.Background(), GenerateRequest{
		Type:       "users",
		PropertyID: "prop-1",
		Model:      "gemini-1.5-flash",
		WeeklyData: map[string]int{"users": 10},
	})

	require.NoError(t, err)
	assert.Zero(t, trends.calls)
	assert.Equal(t, "gemini-1.5-flash", provider.lastModel)

	require.Len(t, store.inserted, 1)
	assert.Empty(t, store.inserted[0].WeeklyTrend)
}

func TestGenerateTemplateFailurePersistsNothing(t *testing.T) {
	store := newFakeInsightStore()
	provider := &fakeCompleter{response: "ok"}

	o := testOrchestrator(store, &fakeTrendCalc{trend: &models.WeeklyTrend{}}, &fakeModelResolver{model: "m"}, provider, time.Now())

	_, err := o.Generate(context.Background(), GenerateRequest{
		Type:       "sessions",
		PropertyID: "prop-1",
		TemplateID: "missing",
	})

	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Zero(t, provider.calls)
	assert.Empty(t, store.inserted)
}

func TestGenerateProviderFailurePersistsNothing(t *testing.T) {
	store := newFakeInsightStore()
	provider := &fakeCompleter{err: errors.New("model overloaded")}

	o := testOrchestrator(store, &fakeTrendCalc{trend: &models.WeeklyTrend{}}, &fakeModelResolver{model: "m"}, provider, time.Now())

	_, err := o.Generate(context.Background(), GenerateRequest{
		Type:       "sessions",
		PropertyID: "prop-1",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Empty(t, store.inserted)
}

func TestGenerateComprehensiveAggregatesSourceInsights(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeInsightStore()
	store.latest["sessions"] = &models.Insight{
		ID:     "ins-sessions",
		Type:   "sessions",
		Result: "sessions grew",
		Model:  "gemini-1.5-pro",
	}
	store.latest["conversions"] = &models.Insight{
		ID:     "ins-conversions",
		Type:   "conversions",
		Result: "conversions flat",
		Model:  "gemini-1.5-pro",
	}
	store.trends["sessions"] = &models.WeeklyTrend{PropertyID: "prop-1", DataType: "sessions"}

	provider := &fakeCompleter{response: "overall healthy"}

	o := testOrchestrator(store, &fakeTrendCalc{}, &fakeModelResolver{model: "gemini-1.5-pro"}, provider, now)

	result, err := o.Generate(context.Background(), GenerateRequest{
		Type:               "comprehensive",
		PropertyID:         "prop-1",
		IsComprehensive:    true,
		SourceInsightTypes: []string{"sessions", "conversions", "users"},
	})

	require.NoError(t, err)
	assert.True(t, result.Metadata.IsComprehensive)
	assert.Equal(t, 2, result.Metadata.SourceInsightCount)
	assert.ElementsMatch(t, []string{SourceAnalytics, SourceTagManager}, result.Metadata.DataSourceTypes)

	require.Len(t, store.inserted, 1)
	saved := store.inserted[0]
	assert.True(t, saved.IsComprehensive)
	assert.ElementsMatch(t, []string{"ins-sessions", "ins-conversions"}, saved.SourceInsightIDs)

	var contextData map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(extractWeeklyData(t, provider.lastPrompt)), &contextData))
	assert.Contains(t, contextData, "sessions")
	assert.Contains(t, contextData, "conversions")
	assert.Equal(t, map[string]interface{}{"status": "no data"}, contextData["users"])
}

func TestGenerateComprehensiveWithNoSourcesFails(t *testing.T) {
	store := newFakeInsightStore()
	provider := &fakeCompleter{response: "never"}

	o := testOrchestrator(store, &fakeTrendCalc{}, &fakeModelResolver{model: "m"}, provider, time.Now())

	_, err := o.Generate(context.Background(), GenerateRequest{
		Type:               "comprehensive",
		PropertyID:         "prop-1",
		IsComprehensive:    true,
		SourceInsightTypes: []string{"sessions", "users"},
	})

	assert.ErrorIs(t, err, ErrNoSourceInsights)
	assert.Zero(t, provider.calls)
	assert.Empty(t, store.inserted)
}

func TestLatestRequiresProperty(t *testing.T) {
	o := testOrchestrator(newFakeInsightStore(), &fakeTrendCalc{}, &fakeModelResolver{}, &fakeCompleter{}, time.Now())

	_, err := o.Latest("sessions", "", nil)
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestLatestPassesThrough(t *testing.T) {
	store := newFakeInsightStore()
	store.latest["sessions"] = &models.Insight{ID: "ins-1", Type: "sessions"}

	o := testOrchestrator(store, &fakeTrendCalc{}, &fakeModelResolver{}, &fakeCompleter{}, time.Now())

	latest, err := o.Latest("sessions", "prop-1", nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ins-1", latest.ID)
}

// extractWeeklyData pulls the JSON document substituted into the
// comprehensive default prompt after "Insights: ".
func extractWeeklyData(t *testing.T, prompt string) string {
	t.Helper()
	const marker = "Insights: "
	idx := strings.Index(prompt, marker)
	require.GreaterOrEqual(t, idx, 0)
	return prompt[idx+len(marker):]
}
