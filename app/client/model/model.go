package model

import (
	"context"
	"debtslayer/app/config"
	"net/http"
	"time"

	"github.com/samber/oops"
)

const httpTimeout = 60 * time.Second

type Usage struct {
	PromptTokens    int `json:"prompt_tokens"`
	CandidateTokens int `json:"candidate_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:    u.PromptTokens + other.PromptTokens,
		CandidateTokens: u.CandidateTokens + other.CandidateTokens,
		TotalTokens:     u.TotalTokens + other.TotalTokens,
	}
}

type Reply struct {
	Text  string
	Usage Usage
}

// Client is an opaque text-in/text-out generative model.
type Client interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, turnPrompt string) (*Reply, error)
}

// New builds the client for the configured driver. name identifies the slot (primary, secondary) in logs.
func New(name string, cfg config.ModelConfig) (Client, error) {
	httpClient := &http.Client{
		Timeout: httpTimeout,
	}

	switch cfg.Driver {
	case config.DriverOpenAI, "":
		return newOpenAIClient(name, cfg, httpClient), nil
	case config.DriverLangchain:
		return newLangchainClient(name, cfg, httpClient)
	default:
		return nil, oops.Errorf("unknown model driver %q", cfg.Driver)
	}
}
