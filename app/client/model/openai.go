package model

import (
	"context"
	"debtslayer/app/config"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	name   string
	cfg    config.ModelConfig
	client *openai.Client
}

func newOpenAIClient(name string, cfg config.ModelConfig, httpClient *http.Client) *openAIClient {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = httpClient

	return &openAIClient{
		name:   name,
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

func (c *openAIClient) Name() string {
	return c.name
}

func (c *openAIClient) Generate(ctx context.Context, systemPrompt, turnPrompt string) (*Reply, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: turnPrompt,
				},
			},
			MaxCompletionTokens: c.cfg.MaxTokens,
			Temperature:         c.cfg.Temperature,
		},
	)
	if err != nil {
		return nil, c.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{Model: c.name, Message: "no choices in completion"}
	}

	return &Reply{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: Usage{
			PromptTokens:    resp.Usage.PromptTokens,
			CandidateTokens: resp.Usage.CompletionTokens,
			TotalTokens:     resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *openAIClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Model: c.name, Code: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Model: c.name, Code: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}

	// transport errors (dns, context) keep their identity for errors.Is/As
	return &Error{Model: c.name, Message: err.Error(), Err: err}
}
