package agent

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"journalapi/internal/llm"
)

const (
	diaryUnavailable  = "[일기 생성 실패] 요약 모델을 사용할 수 없습니다. 시스템 관리자에게 문의하세요.\n\n입력 내용: "
	answerUnavailable = "죄송합니다. 현재 질문 답변 서비스를 사용할 수 없습니다. 에이전트 서비스 연결을 확인해주세요."
	previewRunes      = 100
)

// KeywordAgent routes locally with Classify. It never calls the agent service.
type KeywordAgent struct {
	summarizer llm.Summarizer
	logger     *zap.Logger
}

// NewKeywordAgent returns a local orchestrator. summarizer may be nil.
func NewKeywordAgent(summarizer llm.Summarizer, logger *zap.Logger) *KeywordAgent {
	return &KeywordAgent{summarizer: summarizer, logger: logger}
}

var _ Orchestrator = (*KeywordAgent)(nil)

func (k *KeywordAgent) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	rt := req.RequestType
	if rt == "" {
		rt = Classify(req.Content)
	}

	switch rt {
	case RequestSummarize:
		return &Result{Type: ResultDiary, Content: k.diary(ctx, req), Message: MessageDiary}, nil
	case RequestQuestion:
		k.logger.Warn("question answering unavailable without agent service")
		return &Result{Type: ResultAnswer, Content: answerUnavailable, Message: MessageAnswer}, nil
	default:
		return &Result{Type: ResultData, Message: MessageData}, nil
	}
}

func (k *KeywordAgent) diary(ctx context.Context, req Request) string {
	if k.summarizer != nil {
		out, err := k.summarizer.Summarize(ctx, req.Content, llm.Options{Temperature: req.Temperature})
		if err == nil {
			return out
		}
		if !errors.Is(err, llm.ErrEmptyContent) {
			k.logger.Error("keyword agent summarize", zap.Error(err))
		}
	}
	return diaryUnavailable + preview(req.Content) + "..."
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r)
}

// FallbackAgent tries primary first and answers from secondary when primary fails.
type FallbackAgent struct {
	primary   Orchestrator
	secondary Orchestrator
	logger    *zap.Logger
}

func NewFallbackAgent(primary, secondary Orchestrator, logger *zap.Logger) *FallbackAgent {
	return &FallbackAgent{primary: primary, secondary: secondary, logger: logger}
}

var _ Orchestrator = (*FallbackAgent)(nil)

func (f *FallbackAgent) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	res, err := f.primary.Orchestrate(ctx, req)
	if err == nil {
		return res, nil
	}
	f.logger.Warn("agent failed, falling back to keyword routing", zap.Error(err))
	return f.secondary.Orchestrate(ctx, req)
}
