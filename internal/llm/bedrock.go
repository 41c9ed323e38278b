package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// BedrockClient is the subset of *bedrockruntime.Client used here.
type BedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock summarizes with an Anthropic model through Bedrock InvokeModel.
type Bedrock struct {
	client  BedrockClient
	modelID string
	logger  *zap.Logger
}

func NewBedrock(client BedrockClient, modelID string, logger *zap.Logger) *Bedrock {
	return &Bedrock{client: client, modelID: modelID, logger: logger}
}

var _ Summarizer = (*Bedrock)(nil)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	TopK             int                `json:"top_k"`
	System           string             `json:"system"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *Bedrock) Summarize(ctx context.Context, content string, opts Options) (string, error) {
	content, err := prepare(content)
	if err != nil {
		return "", err
	}

	req := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        MaxTokens,
		Temperature:      opts.temperature(),
		TopK:             opts.topK(),
		System:           systemPrompt,
		Messages:         []anthropicMessage{{Role: "user", Content: userPrompt(content)}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode bedrock request: %w", err)
	}

	b.logger.Info("bedrock invoke",
		zap.String("model_id", b.modelID),
		zap.Float64("temperature", req.Temperature),
		zap.Int("top_k", req.TopK),
	)

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		b.logger.Error("bedrock invoke failed", zap.String("model_id", b.modelID), zap.Error(err))
		return "", classifyAWSError(err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Content) == 0 {
		return "", ErrMalformedResponse
	}
	return finish(resp.Content[0].Text)
}

// classifyAWSError maps SDK error codes onto the package sentinels.
func classifyAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException", "TooManyRequestsException":
			return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException",
			"InvalidSignatureException":
			return fmt.Errorf("%w: %s", ErrCredentials, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("%w: %w", ErrInvocation, err)
}
