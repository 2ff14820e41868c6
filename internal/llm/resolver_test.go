package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	models []ModelInfo
	err    error
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return f.models, f.err
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, contextData interface{}, model string) (string, error) {
	return "", errors.New("not implemented")
}

func generating(id string) ModelInfo {
	return ModelInfo{ID: id, Capabilities: []string{CapabilityGenerate}}
}

func TestResolveModelPrefersCallerList(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		generating("gemini-1.5-flash"),
		generating("gemini-1.5-pro"),
	}}

	r := NewResolver(provider, []string{"gemini-1.5-flash"})

	model, err := r.ResolveModel(context.Background(), []string{"gemini-1.5-pro"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", model)
}

func TestResolveModelFallsBackToConfiguredList(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		generating("gemini-1.5-flash"),
	}}

	r := NewResolver(provider, []string{"gemini-1.5-flash"})

	model, err := r.ResolveModel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", model)
}

func TestResolveModelNoPriorityConfigured(t *testing.T) {
	r := NewResolver(&fakeProvider{}, nil)

	_, err := r.ResolveModel(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoModelPriority)
}

func TestResolveModelSkipsNonGeneratingModels(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		{ID: "embedding-001", Capabilities: []string{"embedContent"}},
		generating("gemini-1.5-pro"),
	}}

	r := NewResolver(provider, []string{"embedding-001", "gemini-1.5-pro"})

	model, err := r.ResolveModel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", model)
}

func TestResolveModelExperimentalFallback(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		generating("gemini-1.5-flash"),
		generating("gemini-2.0-flash-exp"),
	}}

	r := NewResolver(provider, []string{"gemini-9.9-ultra"})

	model, err := r.ResolveModel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash-exp", model)
}

func TestResolveModelAnyAvailableFallback(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		generating("gemini-1.5-flash"),
		generating("gemini-1.5-pro"),
	}}

	r := NewResolver(provider, []string{"gemini-9.9-ultra"})

	model, err := r.ResolveModel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", model)
}

func TestResolveModelNoUsableModel(t *testing.T) {
	provider := &fakeProvider{models: []ModelInfo{
		{ID: "embedding-001", Capabilities: []string{"embedContent"}},
	}}

	r := NewResolver(provider, []string{"gemini-1.5-pro"})

	_, err := r.ResolveModel(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoUsableModel)
}

func TestResolveModelCatalogError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota exceeded")}

	r := NewResolver(provider, []string{"gemini-1.5-pro"})

	_, err := r.ResolveModel(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list models")
}
