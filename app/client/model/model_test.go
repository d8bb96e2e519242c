package model

import (
	"context"
	"debtslayer/app/config"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "gemini-2.5-flash",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  Sip, dicatat! [ACTION:DEPOSIT:50000]  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func modelConfig(driver, baseURL string) config.ModelConfig {
	return config.ModelConfig{
		Driver:      driver,
		BaseURL:     baseURL,
		Token:       "test-token",
		Model:       "gemini-2.5-flash",
		Temperature: 0.8,
		MaxTokens:   256,
	}
}

func TestGenerate(t *testing.T) {
	for _, driver := range []string{config.DriverOpenAI, config.DriverLangchain} {
		t.Run(driver, func(t *testing.T) {
			var captured capturedRequest
			server := newServer(t, http.StatusOK, completionBody, &captured)

			client, err := New("primary", modelConfig(driver, server.URL))
			require.NoError(t, err)
			assert.Equal(t, "primary", client.Name())

			reply, err := client.Generate(context.Background(), "system prompt", "user says hi")
			require.NoError(t, err)

			assert.Equal(t, "Sip, dicatat! [ACTION:DEPOSIT:50000]", reply.Text)
			assert.Equal(t, Usage{PromptTokens: 120, CandidateTokens: 30, TotalTokens: 150}, reply.Usage)

			assert.Equal(t, "gemini-2.5-flash", captured.Model)
			require.Len(t, captured.Messages, 2)
			assert.Equal(t, "system", captured.Messages[0].Role)
			assert.Equal(t, "user says hi", captured.Messages[1].Content)
		})
	}
}

func TestGenerateRateLimited(t *testing.T) {
	body := `{"error": {"code": 429, "message": "Quota exceeded for metric GenerateRequestsPerDayPerProjectPerModel", "status": "RESOURCE_EXHAUSTED"}}`

	for _, driver := range []string{config.DriverOpenAI, config.DriverLangchain} {
		t.Run(driver, func(t *testing.T) {
			server := newServer(t, http.StatusTooManyRequests, body, nil)

			client, err := New("secondary", modelConfig(driver, server.URL))
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), "system", "hi")
			require.Error(t, err)

			var modelErr *Error
			require.True(t, errors.As(err, &modelErr))
			assert.Equal(t, http.StatusTooManyRequests, modelErr.StatusCode())
			assert.Contains(t, err.Error(), "PerDay")
		})
	}
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New("primary", modelConfig("grpc", "http://localhost"))
	require.Error(t, err)
}

func TestUsageAdd(t *testing.T) {
	total := Usage{PromptTokens: 1, CandidateTokens: 2, TotalTokens: 3}.Add(Usage{PromptTokens: 10, CandidateTokens: 20, TotalTokens: 30})
	assert.Equal(t, Usage{PromptTokens: 11, CandidateTokens: 22, TotalTokens: 33}, total)
}
