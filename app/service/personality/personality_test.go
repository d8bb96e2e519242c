package personality

import (
	"debtslayer/app/service/ledger"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMode Mode

func (m fixedMode) PersonalityMode() Mode { return Mode(m) }

var state = ledger.State{
	TotalDebt:          1_000_000,
	TotalPaid:          250_000,
	RemainingDebt:      750_000,
	DaysRemaining:      10,
	DailyTarget:        75_000,
	ProgressPercentage: 25,
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" gentle ")
	require.NoError(t, err)
	assert.Equal(t, Gentle, m)

	_, err = ParseMode("chaotic")
	require.Error(t, err)
}

func TestSystemPrompt(t *testing.T) {
	p := NewPrompter(fixedMode(Strict))
	p.now = func() time.Time { return time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC) }

	prompt := p.SystemPrompt(state, 20_000)

	assert.Contains(t, prompt, "STRICT")
	assert.Contains(t, prompt, "Rp 750.000")
	assert.Contains(t, prompt, "Rp 75.000")
	assert.Contains(t, prompt, "Rp 20.000")
	assert.Contains(t, prompt, "10 hari")
	assert.Contains(t, prompt, "2026-03-01 19:00")
	assert.Contains(t, prompt, "[ACTION:NONE]")
	assert.NotContains(t, prompt, "{")
}

func TestTurnPrompt(t *testing.T) {
	p := NewPrompter(fixedMode(Balanced))

	prompt := p.TurnPrompt("setor {history} 50rb", "")
	assert.Contains(t, prompt, "Belum ada percakapan")
	assert.Contains(t, prompt, "setor {history} 50rb")
}

func TestDepositReaction(t *testing.T) {
	pick := FirstPicker{}

	assert.Equal(t, reactions[Strict].high[0], DepositReaction(pick, Strict, 150_000, 75_000))
	assert.Equal(t, reactions[Gentle].met[0], DepositReaction(pick, Gentle, 75_000, 75_000))
	assert.Equal(t, reactions[Balanced].below[0], DepositReaction(pick, Balanced, 10_000, 75_000))
	assert.Equal(t, reactions[Balanced].met[0], DepositReaction(pick, Mode("unknown"), 75_000, 75_000))
}

func TestGreeting(t *testing.T) {
	pick := FirstPicker{}

	assert.Contains(t, Greeting(pick, state, 0, false), "aku Mai")
	assert.Contains(t, Greeting(pick, state, 0, true), "Belum setor hari ini")
	assert.Contains(t, Greeting(pick, state, 80_000, true), "target tercapai")
	assert.Contains(t, Greeting(pick, state, 25_000, true), "kurang Rp 50.000")

	paid := state
	paid.RemainingDebt = 0
	assert.Equal(t, "Lunas. Jangan bikin hutang baru, dengar?", Greeting(pick, paid, 0, true))

	late := state
	late.DaysRemaining = -1
	assert.Contains(t, Greeting(pick, late, 0, true), "Deadline sudah lewat")
}

func TestBuildReminder(t *testing.T) {
	pick := FirstPicker{}

	cases := []struct {
		name  string
		days  int
		today int64
		title string
	}{
		{"overdue", -2, 0, "Deadline lewat 2 hari"},
		{"deadline today", 0, 0, "Hari ini deadline"},
		{"critical", 3, 10_000, "Kritis"},
		{"urgent", 6, 0, "Urgent"},
		{"nothing today", 20, 0, "Reminder dari Mai"},
		{"target met", 20, 75_000, "tercapai"},
		{"shortfall", 20, 25_000, "Kurang Rp 50.000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := state
			s.DaysRemaining = tc.days

			r, ok := BuildReminder(pick, Balanced, s, tc.today)
			require.True(t, ok)
			assert.Contains(t, r.Title, tc.title)
			assert.NotEmpty(t, strings.TrimSpace(r.Body))
		})
	}

	paid := state
	paid.RemainingDebt = 0
	_, ok := BuildReminder(pick, Strict, paid, 0)
	assert.False(t, ok)
}

func TestPickers(t *testing.T) {
	options := []string{"a", "b", "c"}

	assert.Equal(t, "a", FirstPicker{}.Pick(options))
	assert.Contains(t, options, RandomPicker{}.Pick(options))
	assert.Equal(t, "", RandomPicker{}.Pick(nil))
}
