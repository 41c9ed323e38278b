package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatClient is the minimal subset of *openai.Client used here; it is easy to fake in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient creates a client for the OpenAI API or any compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAI summarizes through a chat completion. TopK has no equivalent and is ignored.
type OpenAI struct {
	client ChatClient
	model  string
	logger *zap.Logger
}

func NewOpenAI(client ChatClient, model string, logger *zap.Logger) *OpenAI {
	return &OpenAI{client: client, model: model, logger: logger}
}

var _ Summarizer = (*OpenAI)(nil)

func (o *OpenAI) Summarize(ctx context.Context, content string, opts Options) (string, error) {
	content, err := prepare(content)
	if err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   MaxTokens,
		Temperature: float32(opts.temperature()),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(content)},
		},
	}

	o.logger.Info("chat completion", zap.String("model", o.model), zap.Float32("temperature", req.Temperature))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.logger.Error("chat completion failed", zap.String("model", o.model), zap.Error(err))
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	return finish(resp.Choices[0].Message.Content)
}

func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrThrottled, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	return fmt.Errorf("%w: %w", ErrInvocation, err)
}
