package personality

import (
	"debtslayer/app/service/ledger"
	"debtslayer/app/util/money"
	"fmt"
	"strings"
	"time"

	_ "embed"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

//go:embed turn_prompt.txt
var turnPromptTemplate string

type ModeSource interface {
	PersonalityMode() Mode
}

// Prompter renders the prompts sent to the remote models.
type Prompter struct {
	modes ModeSource
	now   func() time.Time
}

func NewPrompter(modes ModeSource) *Prompter {
	return &Prompter{
		modes: modes,
		now:   time.Now,
	}
}

func (p *Prompter) SystemPrompt(state ledger.State, todayDeposit int64) string {
	return render(systemPromptTemplate, map[string]any{
		"mode":           p.modes.PersonalityMode().describe(),
		"now":            p.now().Format("2006-01-02 15:04"),
		"total_debt":     money.Format(state.TotalDebt),
		"total_paid":     money.Format(state.TotalPaid),
		"remaining_debt": money.Format(state.RemainingDebt),
		"daily_target":   money.Format(state.DailyTarget),
		"today_deposit":  money.Format(todayDeposit),
		"days_remaining": fmt.Sprintf("%d hari", state.DaysRemaining),
	})
}

func (p *Prompter) TurnPrompt(message, history string) string {
	if strings.TrimSpace(history) == "" {
		history = "Belum ada percakapan"
	}

	return render(turnPromptTemplate, map[string]any{
		"history": history,
		"message": message,
	})
}

// render substitutes {key} placeholders in a single pass, so values are never re-expanded.
func render(template string, values map[string]any) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", fmt.Sprint(value))
	}

	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
