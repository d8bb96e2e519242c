package orchestrator

import (
	"debtslayer/app/service/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		visible string
		action  Action
	}{
		{"deposit", "Dicatat ya. [ACTION:DEPOSIT:50000]", "Dicatat ya.", Action{Kind: ActionDeposit, Amount: 50_000}},
		{"deposit with separators", "Oke [ACTION:DEPOSIT:1.250.000]", "Oke", Action{Kind: ActionDeposit, Amount: 1_250_000}},
		{"lowercase", "Oke [action:deposit:20000]", "Oke", Action{Kind: ActionDeposit, Amount: 20_000}},
		{"delete last", "Dihapus. [ACTION:DELETE_LAST]", "Dihapus.", Action{Kind: ActionDeleteLast}},
		{"none", "Semangat! [ACTION:NONE]", "Semangat!", Action{}},
		{"missing", "Semangat!", "Semangat!", Action{}},
		{"zero amount", "Hmm [ACTION:DEPOSIT:0]", "Hmm", Action{}},
		{"garbage amount", "Hmm [ACTION:DEPOSIT:lima puluh]", "Hmm", Action{}},
		{"unknown", "Hmm [ACTION:LAUNCH]", "Hmm", Action{}},
		{"last one wins", "[ACTION:NONE] Oke [ACTION:DEPOSIT:5000]", "Oke", Action{Kind: ActionDeposit, Amount: 5_000}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			visible, action := ParseAction(tc.text)
			assert.Equal(t, tc.visible, visible)
			assert.Equal(t, tc.action, action)
		})
	}
}

func TestHistoryKeepsLastEntries(t *testing.T) {
	ts := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	h := newHistory(2, []storage.Turn{
		{UserText: "satu", AssistantText: "a", Timestamp: ts},
		{UserText: "dua", AssistantText: "b", Timestamp: ts},
	})
	h.add("tiga", "c", ts)

	formatted := h.format()
	assert.NotContains(t, formatted, "satu")
	assert.Contains(t, formatted, "2026-03-01 19:00 - User: dua")
	assert.Contains(t, formatted, "2026-03-01 19:00 - Mai: c")

	assert.Empty(t, newHistory(0, nil).format())
}

func TestPhaseText(t *testing.T) {
	text, err := FallbackConnecting.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "fallback_connecting", string(text))
	assert.Equal(t, "unknown", Phase(99).String())
	assert.Equal(t, Secondary, Primary.other())
}
