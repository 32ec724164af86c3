package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/domain"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/metrics"
)

// ChatConfig holds the chat-model settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// ChatModel calls the OpenAI chat completions API and requests JSON output.
type ChatModel struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewChatModel creates an OpenAI chat completion client.
func NewChatModel(cfg *ChatConfig) *ChatModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatModel{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Complete sends prompt and returns the model's reply. The model is asked
// for a JSON object response. stage labels the request in metrics and logs.
func (m *ChatModel) Complete(ctx context.Context, stage, prompt string, temperature float32) (string, error) {
	start := time.Now()

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(stage, "error").Inc()
		return "", chatAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.LLMRequestsTotal.WithLabelValues(stage, "error").Inc()
		return "", fmt.Errorf("empty completion for stage %s: %w", stage, domain.ErrExternalCall)
	}

	metrics.LLMRequestsTotal.WithLabelValues(stage, "success").Inc()
	m.logger.Debug("chat completion",
		zap.String("stage", stage),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

func chatAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrExternalCall)
	}
	return fmt.Errorf("chat request failed: %w: %w", domain.ErrExternalCall, err)
}
