package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient("test-key", 5*time.Second)
	client.baseURL = srv.URL
	return client
}

func TestListModelsMapsCatalog(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-pro","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]}
		]}`))
	})

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "gemini-1.5-pro", models[0].ID)
	assert.True(t, models[0].SupportsGenerate())
	assert.False(t, models[1].SupportsGenerate())
}

func TestCompleteParsesCandidate(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-pro:generateContent", r.URL.Path)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sessions grew 25%"}]}}]}`))
	})

	text, err := client.Complete(context.Background(), "analyze", nil, "gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "sessions grew 25%", text)
}

func TestCompleteSurfacesAPIErrorMessage(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	})

	_, err := client.Complete(context.Background(), "analyze", nil, "gemini-1.5-pro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCompleteSurfacesStatusForNonJSONErrorBody(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>502 Bad Gateway</html>"))
	})

	_, err := client.Complete(context.Background(), "analyze", nil, "gemini-1.5-pro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.NotContains(t, err.Error(), "decode")
}

func TestCompleteRejectsEmptyCandidates(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := client.Complete(context.Background(), "analyze", nil, "gemini-1.5-pro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
