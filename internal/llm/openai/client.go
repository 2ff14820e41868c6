package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/marketing-insight/backend/internal/llm"
	"github.com/marketing-insight/backend/internal/metrics"
	"github.com/marketing-insight/backend/pkg/logger"
)

type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) *Client {
	logger.Info("OpenAI client initialized")

	return &Client{client: openai.NewClient(apiKey)}
}

func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	// The models endpoint does not report per-model capabilities, so every
	// listed model is advertised as generation-capable.
	models := make([]llm.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, llm.ModelInfo{
			ID:           m.ID,
			Capabilities: []string{llm.CapabilityGenerate},
		})
	}

	logger.Debug("OpenAI models listed", zap.Int("count", len(models)))

	return models, nil
}

func (c *Client) Complete(ctx context.Context, prompt string, contextData interface{}, model string) (string, error) {
	start := time.Now()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	if contextData != nil {
		serialized, err := json.Marshal(contextData)
		if err != nil {
			return "", fmt.Errorf("failed to marshal context data: %w", err)
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: string(serialized),
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call completion provider: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	metrics.LLMRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	logger.Debug("Completion generated",
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
