package engine

import (
	"bytes"
	"context"
	"debtslayer/app/client/model"
	"debtslayer/app/config"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/orchestrator"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoClient struct{}

func (echoClient) Name() string { return "echo" }

func (echoClient) Generate(_ context.Context, _, turnPrompt string) (*model.Reply, error) {
	return &model.Reply{Text: "Kamu bilang: " + turnPrompt + " [ACTION:NONE]"}, nil
}

func newChat(t *testing.T, input string) (*Service, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	cfg := &config.Config{
		Debt: config.Debt{
			Total:       1_000_000,
			Deadline:    time.Now().AddDate(0, 0, 10).Format(settings.DateLayout),
			Personality: "BALANCED",
		},
		Reminder: config.Reminder{Hour: 19},
	}

	settingsSvc, err := settings.NewService(ctx, store, cfg)
	require.NoError(t, err)
	debtSvc, err := debt.NewService(ctx, store, settingsSvc)
	require.NoError(t, err)

	orch := orchestrator.NewOrchestrator(orchestrator.Deps{
		Primary:   echoClient{},
		Secondary: echoClient{},
		Ledger:    debtSvc,
		Journal:   store,
		Prompter:  personality.NewPrompter(settingsSvc),
	}, orchestrator.Options{RequestTimeout: time.Second})
	t.Cleanup(func() { _ = orch.Shutdown() })

	out := &bytes.Buffer{}
	svc := NewService(orch, debtSvc, strings.NewReader(input), out)
	svc.picker = personality.FirstPicker{}

	return svc, out
}

func TestChatSession(t *testing.T) {
	svc, out := newChat(t, "halo\n/status\n")

	require.NoError(t, svc.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Mai: Hai, aku Mai")
	assert.Contains(t, text, "Sisa hutang")
	assert.Contains(t, text, "Mai: Kamu bilang:")
	assert.NotContains(t, text, "[ACTION")
}

func TestQuitCommand(t *testing.T) {
	svc, out := newChat(t, "/stop\n/quit\nhalo\n")

	require.NoError(t, svc.Run(context.Background()))

	assert.Contains(t, out.String(), "tidak ada pesan yang sedang diproses")
	assert.NotContains(t, out.String(), "Kamu bilang")
}
