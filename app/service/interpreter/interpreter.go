package interpreter

import (
	"debtslayer/app/service/amount"
	"debtslayer/app/service/ledger"
	"debtslayer/app/util/money"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Banner opens every locally generated reply so the user knows the assistant is offline.
const Banner = "📴 Mode offline: AI sedang tidak tersedia, jawaban dibuat lokal."

const barSegments = 10

type Intent int

const (
	IntentOther Intent = iota
	IntentHelp
	IntentDeposit
	IntentInfo
)

func (i Intent) String() string {
	switch i {
	case IntentHelp:
		return "help"
	case IntentDeposit:
		return "deposit"
	case IntentInfo:
		return "info"
	default:
		return "other"
	}
}

type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectRecordDeposit
)

// Effect is the mutation a local reply asks the caller to perform.
type Effect struct {
	Kind   EffectKind
	Amount int64
}

var (
	tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+|\?`)

	helpTriggers    = set("help", "bantuan", "?")
	depositTriggers = set("setor", "setoran", "nabung", "bayar", "cicil", "transfer", "masuk")
	infoTriggers    = set("info", "status", "cek", "ringkasan", "summary", "hutang")
)

func set(words ...string) map[string]struct{} {
	result := make(map[string]struct{}, len(words))
	for _, w := range words {
		result[w] = struct{}{}
	}
	return result
}

func Classify(text string) Intent {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)

	has := func(triggers map[string]struct{}) bool {
		for _, tok := range tokens {
			if _, ok := triggers[tok]; ok {
				return true
			}
		}
		return false
	}

	switch {
	case has(helpTriggers):
		return IntentHelp
	case has(depositTriggers):
		return IntentDeposit
	case has(infoTriggers):
		return IntentInfo
	default:
		return IntentOther
	}
}

// Respond answers without any remote model. todayDeposit is the sum deposited on the current day.
func Respond(text string, state ledger.State, todayDeposit int64) (string, Effect) {
	switch Classify(text) {
	case IntentDeposit:
		value, ok := amount.Parse(text)
		if !ok {
			return Banner + "\nNominal tidak terbaca. Contoh: \"setor 50rb\", \"nabung 1.5jt\", \"bayar 75000\".",
				Effect{}
		}

		remaining := max(0, state.RemainingDebt-value)
		reply := fmt.Sprintf("%s\n✅ Setoran %s dicatat. Sisa hutang %s.",
			Banner, money.Format(value), money.Format(remaining))

		return reply, Effect{Kind: EffectRecordDeposit, Amount: value}
	case IntentHelp:
		return Banner + "\n" + helpText + "\n\n" + Summary(state, todayDeposit), Effect{}
	default:
		return Banner + "\n" + Summary(state, todayDeposit), Effect{}
	}
}

const helpText = `Perintah yang bisa dipakai saat offline:
- "setor 50rb" / "nabung 1.5jt" / "bayar 75000": catat setoran
- "info" / "cek" / "ringkasan": lihat ringkasan hutang
- "help" / "bantuan": tampilkan bantuan ini`

func Summary(state ledger.State, todayDeposit int64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total hutang  : %s\n", money.Format(state.TotalDebt))
	fmt.Fprintf(&b, "Sudah dibayar : %s\n", money.Format(state.TotalPaid))
	fmt.Fprintf(&b, "Sisa hutang   : %s\n", money.Format(state.RemainingDebt))
	fmt.Fprintf(&b, "Sisa hari     : %d hari\n", state.DaysRemaining)
	fmt.Fprintf(&b, "Target harian : %s\n", money.Format(state.DailyTarget))
	fmt.Fprintf(&b, "Setoran hari ini: %s\n", money.Format(todayDeposit))
	fmt.Fprintf(&b, "[%s] %.0f%%", ProgressBar(state.ProgressPercentage), state.ProgressPercentage)

	return b.String()
}

// ProgressBar draws floor(pct/10) filled segments out of ten.
func ProgressBar(pct float64) string {
	filled := int(math.Floor(pct / 10))
	filled = min(max(filled, 0), barSegments)

	return strings.Repeat("#", filled) + strings.Repeat("-", barSegments-filled)
}
