package model

import (
	"context"
	"debtslayer/app/config"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

type langchainClient struct {
	name string
	cfg  config.ModelConfig
	llm  *lcopenai.LLM
}

func newLangchainClient(name string, cfg config.ModelConfig, httpClient *http.Client) (*langchainClient, error) {
	llm, err := lcopenai.New(
		lcopenai.WithToken(cfg.Token),
		lcopenai.WithBaseURL(cfg.BaseURL),
		lcopenai.WithModel(cfg.Model),
		lcopenai.WithHTTPClient(httpClient),
		lcopenai.WithCallback(LogCallbackHandler{Model: name}),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create langchain client: %w", err)
	}

	return &langchainClient{
		name: name,
		cfg:  cfg,
		llm:  llm,
	}, nil
}

func (c *langchainClient) Name() string {
	return c.name
}

func (c *langchainClient) Generate(ctx context.Context, systemPrompt, turnPrompt string) (*Reply, error) {
	resp, err := c.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, turnPrompt),
		},
		llms.WithTemperature(float64(c.cfg.Temperature)),
		llms.WithMaxTokens(c.cfg.MaxTokens),
	)
	if err != nil {
		return nil, c.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{Model: c.name, Message: "no choices in completion"}
	}

	choice := resp.Choices[0]

	return &Reply{
		Text: strings.TrimSpace(choice.Content),
		Usage: Usage{
			PromptTokens:    intInfo(choice.GenerationInfo, "PromptTokens"),
			CandidateTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
			TotalTokens:     intInfo(choice.GenerationInfo, "TotalTokens"),
		},
	}, nil
}

var (
	statusCodeRe = regexp.MustCompile(`status code: (\d{3})`)

	langchainStatus = map[llms.ErrorCode]int{
		llms.ErrCodeRateLimit:           http.StatusTooManyRequests,
		llms.ErrCodeQuotaExceeded:       http.StatusTooManyRequests,
		llms.ErrCodeAuthentication:      http.StatusUnauthorized,
		llms.ErrCodeResourceNotFound:    http.StatusNotFound,
		llms.ErrCodeProviderUnavailable: http.StatusServiceUnavailable,
	}
)

func (c *langchainClient) wrapError(err error) error {
	code := 0
	if m := statusCodeRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ = strconv.Atoi(m[1])
	}

	if code == 0 {
		var llmErr *llms.Error
		if errors.As(lcopenai.MapError(err), &llmErr) {
			code = langchainStatus[llmErr.Code]
		}
	}

	return &Error{Model: c.name, Code: code, Message: err.Error(), Err: err}
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
