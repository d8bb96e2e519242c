package model

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
)

var _ callbacks.Handler = LogCallbackHandler{}

// LogCallbackHandler reports langchain model activity through slog.
type LogCallbackHandler struct {
	callbacks.SimpleHandler

	Model string
}

func (l LogCallbackHandler) HandleLLMGenerateContentStart(ctx context.Context, ms []llms.MessageContent) {
	slog.DebugContext(ctx, "LLM generate content start", "model", l.Model, "messages", len(ms))
}

func (l LogCallbackHandler) HandleLLMGenerateContentEnd(ctx context.Context, res *llms.ContentResponse) {
	if res == nil {
		return
	}

	slog.DebugContext(ctx, "LLM generate content end", "model", l.Model, "choices", len(res.Choices))
}

func (l LogCallbackHandler) HandleLLMError(ctx context.Context, err error) {
	slog.WarnContext(ctx, "LLM error", "model", l.Model, "error", err)
}
