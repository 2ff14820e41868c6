package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/pkg/logger"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client talks to the generative-language REST API. The model catalog
// reports supported generation methods per model, which map directly onto
// provider capabilities.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Info("Gemini client initialized", zap.Duration("timeout", timeout))

	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	url := fmt.Sprintf("%s/models?key=%s", c.baseURL, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build model list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model list request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	models := make([]llm.ModelInfo, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		models = append(models, llm.ModelInfo{
			ID:           strings.TrimPrefix(m.Name, "models/"),
			Capabilities: m.SupportedGenerationMethods,
		})
	}

	logger.Debug("Gemini models listed", zap.Int("count", len(models)))

	return models, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, prompt string, contextData interface{}, model string) (string, error) {
	start := time.Now()

	parts := []part{{Text: prompt}}
	if contextData != nil {
		serialized, err := json.Marshal(contextData)
		if err != nil {
			return "", fmt.Errorf("failed to marshal context data: %w", err)
		}
		parts = append(parts, part{Text: string(serialized)})
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completion provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies are JSON from the API itself but may be HTML from an
		// intermediary; only surface the message when it parses.
		var failed generateResponse
		if err := json.Unmarshal(respBody, &failed); err == nil && failed.Error != nil {
			return "", fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, failed.Error.Message)
		}
		return "", fmt.Errorf("completion request failed with status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("completion response contained no candidates")
	}

	metrics.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	logger.Debug("Completion generated",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
	)

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
