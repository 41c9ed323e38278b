package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/agent"
	"journalapi/internal/flow"
	"journalapi/internal/model"
)

const (
	ResultUnknown  = "unknown"
	MessageUnknown = "처리 결과를 확인할 수 없습니다."
)

// ProcessRequest is a free-text input to classify and route.
type ProcessRequest struct {
	UserID      string
	Content     string
	RequestType agent.RequestType
	Temperature *float64
	RecordDate  *model.Date
	Tags        []string
	S3Key       *string
}

// ProcessResult is what the caller sees after routing. HistoryID holds the stored
// message id for data and the history id for diaries.
type ProcessResult struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Message   string `json:"message"`
	HistoryID string `json:"history_id,omitempty"`
}

// AgentTestResult echoes a raw orchestrator call.
type AgentTestResult struct {
	Input       string            `json:"input"`
	RequestType agent.RequestType `json:"request_type,omitempty"`
	Result      *agent.Result     `json:"result"`
}

// FlowTestResult echoes a raw flow call.
type FlowTestResult struct {
	Input      string `json:"input"`
	NodeName   string `json:"node_name"`
	Content    string `json:"content"`
	IsQuestion bool   `json:"is_question"`
}

// ProcessService routes inputs through the orchestrator or the flow and persists the outcome.
type ProcessService interface {
	Agent(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
	Flow(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
	TestAgent(ctx context.Context, req ProcessRequest) (*AgentTestResult, error)
	TestFlow(ctx context.Context, content string) (*FlowTestResult, error)
}

type processService struct {
	orchestrator agent.Orchestrator
	flow         flow.Invoker
	messages     MessageService
	histories    HistoryService
	clock        clock
	logger       *zap.Logger
}

// NewProcessService constructs a ProcessService. invoker may be nil.
func NewProcessService(orchestrator agent.Orchestrator, invoker flow.Invoker, messages MessageService, histories HistoryService, loc *time.Location, logger *zap.Logger) ProcessService {
	return &processService{
		orchestrator: orchestrator,
		flow:         invoker,
		messages:     messages,
		histories:    histories,
		clock:        newClock(loc),
		logger:       logger,
	}
}

func (s *processService) prepare(req ProcessRequest) (ProcessRequest, model.Date, error) {
	userID, err := validateUserID(req.UserID)
	if err != nil {
		return req, model.Date{}, err
	}
	req.UserID = userID
	if strings.TrimSpace(req.Content) == "" {
		return req, model.Date{}, ErrContentRequired
	}
	day := s.clock.today()
	if req.RecordDate != nil {
		day = *req.RecordDate
	}
	return req, day, nil
}

func (s *processService) Agent(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	req, day, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	res, err := s.orchestrator.Orchestrate(ctx, agent.Request{
		Content:     req.Content,
		UserID:      req.UserID,
		RequestType: req.RequestType,
		Temperature: req.Temperature,
		CurrentDate: day,
	})
	if err != nil {
		return nil, upstreamErr("orchestrate", err)
	}
	s.logger.Info("agent routed", zap.String("user_id", req.UserID), zap.String("type", string(res.Type)))

	switch res.Type {
	case agent.ResultData:
		msg, err := s.messages.Create(ctx, CreateMessageInput{UserID: req.UserID, Content: req.Content})
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Type: string(agent.ResultData), Message: agent.MessageData, HistoryID: msg.ID}, nil

	case agent.ResultAnswer:
		return &ProcessResult{Type: string(agent.ResultAnswer), Content: res.Content, Message: agent.MessageAnswer}, nil

	case agent.ResultDiary:
		if strings.TrimSpace(res.Content) == "" {
			return nil, fmt.Errorf("%w: agent returned an empty diary", ErrUpstream)
		}
		h, err := s.histories.SaveForDate(ctx, SaveHistoryInput{
			UserID:  req.UserID,
			Content: res.Content,
			Date:    day,
			Tags:    req.Tags,
			S3Key:   req.S3Key,
		})
		if err != nil {
			return nil, err
		}
		return &ProcessResult{
			Type:      string(agent.ResultDiary),
			Content:   res.Content,
			Message:   agent.MessageDiary,
			HistoryID: strconv.FormatInt(h.ID, 10),
		}, nil

	default:
		s.logger.Warn("unknown agent result type", zap.String("type", string(res.Type)))
		return &ProcessResult{Type: ResultUnknown, Content: res.Content, Message: MessageUnknown}, nil
	}
}

func (s *processService) Flow(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	req, day, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if s.flow == nil {
		return nil, ErrUnavailable
	}

	res, err := s.flow.Invoke(ctx, req.Content, day)
	if err != nil {
		return nil, upstreamErr("invoke flow", err)
	}
	s.logger.Info("flow routed", zap.String("user_id", req.UserID), zap.String("node", res.NodeName))

	switch res.NodeName {
	case flow.NodeData:
		msg, err := s.messages.Create(ctx, CreateMessageInput{UserID: req.UserID, Content: req.Content})
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Type: string(agent.ResultData), Content: res.Content, Message: agent.MessageData, HistoryID: msg.ID}, nil

	case flow.NodeAnswer:
		return &ProcessResult{Type: string(agent.ResultAnswer), Content: res.Content, Message: agent.MessageAnswer}, nil

	default:
		s.logger.Warn("unknown flow node", zap.String("node", res.NodeName))
		return &ProcessResult{Type: ResultUnknown, Content: res.Content, Message: MessageUnknown}, nil
	}
}

func (s *processService) TestAgent(ctx context.Context, req ProcessRequest) (*AgentTestResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentRequired
	}
	res, err := s.orchestrator.Orchestrate(ctx, agent.Request{
		Content:     req.Content,
		UserID:      req.UserID,
		RequestType: req.RequestType,
		Temperature: req.Temperature,
		CurrentDate: s.clock.today(),
	})
	if err != nil {
		return nil, upstreamErr("orchestrate", err)
	}
	return &AgentTestResult{Input: req.Content, RequestType: req.RequestType, Result: res}, nil
}

func (s *processService) TestFlow(ctx context.Context, content string) (*FlowTestResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	if s.flow == nil {
		return nil, ErrUnavailable
	}
	res, err := s.flow.Invoke(ctx, content, s.clock.today())
	if err != nil {
		return nil, upstreamErr("invoke flow", err)
	}
	return &FlowTestResult{Input: content, NodeName: res.NodeName, Content: res.Content, IsQuestion: res.IsQuestion}, nil
}
