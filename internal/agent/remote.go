package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// RemoteAgent calls the orchestration agent service over HTTP.
type RemoteAgent struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRemoteAgent builds a client for {baseURL}/agent with a traced transport.
func NewRemoteAgent(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteAgent {
	return &RemoteAgent{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

var _ Orchestrator = (*RemoteAgent)(nil)

type remotePayload struct {
	Content     string   `json:"content"`
	UserID      string   `json:"user_id"`
	RecordDate  string   `json:"record_date"`
	RequestType string   `json:"request_type,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type wrappedReply struct {
	StatusCode *int            `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

func (a *RemoteAgent) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(remotePayload{
		Content:     req.Content,
		UserID:      req.UserID,
		RecordDate:  req.CurrentDate.String(),
		RequestType: string(req.RequestType),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode agent request: %w", err)
	}

	url := a.baseURL + "/agent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	a.logger.Info("agent request",
		zap.String("url", url),
		zap.String("user_id", req.UserID),
		zap.String("request_type", string(req.RequestType)),
		zap.String("record_date", req.CurrentDate.String()),
	)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("agent transport", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Error("agent status", zap.Int("status", resp.StatusCode), zap.String("body", truncate(string(body), maxErrorBody)))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", ErrUpstream, ErrThrottled)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	res, err := decodeReply(body)
	if err != nil {
		a.logger.Error("agent decode", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	a.logger.Info("agent reply", zap.String("type", string(res.Type)))
	return res, nil
}

// decodeReply accepts {type, content, message} or the wrapped {statusCode, body} form,
// where body is either an object or a JSON-encoded string.
func decodeReply(raw []byte) (*Result, error) {
	var w wrappedReply
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if len(w.Body) > 0 && string(w.Body) != "null" {
		inner := []byte(w.Body)
		var s string
		if err := json.Unmarshal(inner, &s); err == nil {
			inner = []byte(s)
		}
		raw = inner
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if res.Type == "" {
		return nil, fmt.Errorf("decode reply: missing type")
	}
	return &res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
