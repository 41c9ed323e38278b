// Package flow invokes the Bedrock classification flow that decides what a user input is.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"journalapi/internal/model"
)

const (
	NodeData   = "Data_return"
	NodeAnswer = "Answer_return"

	inputNodeName   = "FlowInputNode"
	inputNodeOutput = "document"
	aliasARNPrefix  = "arn:aws:bedrock:"
)

var (
	ErrInvoke   = errors.New("flow invocation failed")
	ErrNoOutput = errors.New("flow produced no output")
	// ErrThrottled is wrapped alongside ErrInvoke when Bedrock rejects the call for rate or quota.
	ErrThrottled = errors.New("flow invocation throttled")
)

// Result is the last output event the flow emitted.
type Result struct {
	NodeName   string `json:"node_name"`
	Content    string `json:"content"`
	IsQuestion bool   `json:"is_question"`
}

// Client is the subset of *bedrockagentruntime.Client used here.
type Client interface {
	InvokeFlow(ctx context.Context, params *bedrockagentruntime.InvokeFlowInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeFlowOutput, error)
}

// Invoker runs the flow for one input on a given day.
type Invoker interface {
	Invoke(ctx context.Context, input string, date model.Date) (*Result, error)
}

type eventStream interface {
	Events() <-chan types.FlowResponseStream
	Close() error
	Err() error
}

// Flow is the Bedrock-backed Invoker.
type Flow struct {
	client Client
	flowID string
	alias  string
	logger *zap.Logger

	stream func(*bedrockagentruntime.InvokeFlowOutput) eventStream
}

func New(client Client, flowARN, alias string, logger *zap.Logger) *Flow {
	return &Flow{
		client: client,
		flowID: flowARN,
		alias:  aliasID(alias),
		logger: logger,
		stream: func(out *bedrockagentruntime.InvokeFlowOutput) eventStream { return out.GetStream() },
	}
}

var _ Invoker = (*Flow)(nil)

func (f *Flow) Invoke(ctx context.Context, input string, date model.Date) (*Result, error) {
	out, err := f.client.InvokeFlow(ctx, &bedrockagentruntime.InvokeFlowInput{
		FlowIdentifier:      aws.String(f.flowID),
		FlowAliasIdentifier: aws.String(f.alias),
		Inputs: []types.FlowInput{{
			NodeName:       aws.String(inputNodeName),
			NodeOutputName: aws.String(inputNodeOutput),
			Content: &types.FlowInputContentMemberDocument{
				Value: document.NewLazyDocument(buildInput(input, date)),
			},
		}},
	})
	if err != nil {
		f.logger.Error("invoke flow", zap.String("flow", f.flowID), zap.Error(err))
		return nil, invokeErr(err)
	}

	stream := f.stream(out)
	defer stream.Close()

	res, err := collect(stream.Events())
	if serr := stream.Err(); serr != nil {
		return nil, invokeErr(serr)
	}
	if err != nil {
		return nil, err
	}
	f.logger.Info("flow completed", zap.String("node", res.NodeName), zap.Bool("is_question", res.IsQuestion))
	return res, nil
}

func invokeErr(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException", "TooManyRequestsException":
			return fmt.Errorf("%w: %w: %w", ErrInvoke, ErrThrottled, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrInvoke, err)
}

func buildInput(input string, date model.Date) string {
	return "current_date: " + date.String() + "\n\n" + input
}

// aliasID accepts either a bare alias id or an alias ARN.
func aliasID(alias string) string {
	if strings.HasPrefix(alias, aliasARNPrefix) {
		if i := strings.LastIndex(alias, "/"); i >= 0 {
			return alias[i+1:]
		}
	}
	return alias
}

func collect(events <-chan types.FlowResponseStream) (*Result, error) {
	var res *Result
	for ev := range events {
		oe, ok := ev.(*types.FlowResponseStreamMemberFlowOutputEvent)
		if !ok {
			continue
		}
		content, err := decodeContent(oe.Value.Content)
		if err != nil {
			return nil, err
		}
		node := aws.ToString(oe.Value.NodeName)
		res = &Result{NodeName: node, Content: content, IsQuestion: node == NodeAnswer}
	}
	if res == nil {
		return nil, ErrNoOutput
	}
	return res, nil
}

func decodeContent(c types.FlowOutputContent) (string, error) {
	doc, ok := c.(*types.FlowOutputContentMemberDocument)
	if !ok || doc.Value == nil {
		return "", nil
	}
	var v any
	if err := doc.Value.UnmarshalSmithyDocument(&v); err != nil {
		return "", fmt.Errorf("%w: decode output: %w", ErrInvoke, err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("%w: encode output: %w", ErrInvoke, err)
		}
		return string(b), nil
	}
}
