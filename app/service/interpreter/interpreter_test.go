package interpreter

import (
	"debtslayer/app/service/ledger"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var state = ledger.State{
	TotalDebt:          1_000_000,
	TotalPaid:          400_000,
	RemainingDebt:      600_000,
	DaysRemaining:      12,
	DailyTarget:        50_000,
	ProgressPercentage: 40,
}

func TestClassify(t *testing.T) {
	assert.Equal(t, IntentDeposit, Classify("setor 50rb"))
	assert.Equal(t, IntentInfo, Classify("cek hutang dong"))
	assert.Equal(t, IntentHelp, Classify("bantuan setor"))
	assert.Equal(t, IntentHelp, Classify("gimana caranya?"))
	assert.Equal(t, IntentDeposit, Classify("Transfer 100rb, cek ya"))
	assert.Equal(t, IntentOther, Classify("halo mai"))
	// whole tokens only
	assert.Equal(t, IntentOther, Classify("statusnya gimana"))
}

func TestRespondDeposit(t *testing.T) {
	reply, effect := Respond("setor 50rb", state, 0)

	assert.Equal(t, Effect{Kind: EffectRecordDeposit, Amount: 50_000}, effect)
	assert.True(t, strings.HasPrefix(reply, Banner))
	assert.Contains(t, reply, "Rp 50.000")
	assert.Contains(t, reply, "Rp 550.000")
}

func TestRespondDepositWithoutAmount(t *testing.T) {
	reply, effect := Respond("mau nabung", state, 0)

	assert.Equal(t, EffectNone, effect.Kind)
	assert.Contains(t, reply, "setor 50rb")
}

func TestRespondSummary(t *testing.T) {
	for _, text := range []string{"info", "halo", "help"} {
		reply, effect := Respond(text, state, 25_000)

		require.Equal(t, EffectNone, effect.Kind, text)
		assert.True(t, strings.HasPrefix(reply, Banner), text)
		assert.Contains(t, reply, "Rp 600.000", text)
		assert.Contains(t, reply, "Rp 25.000", text)
		assert.Contains(t, reply, "[####------] 40%", text)
	}

	reply, _ := Respond("help", state, 0)
	assert.Contains(t, reply, "bantuan")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "----------", ProgressBar(0))
	assert.Equal(t, "----------", ProgressBar(9.99))
	assert.Equal(t, "#---------", ProgressBar(10))
	assert.Equal(t, "#########-", ProgressBar(99.9))
	assert.Equal(t, "##########", ProgressBar(100))
	assert.Equal(t, "##########", ProgressBar(150))
	assert.Equal(t, "----------", ProgressBar(-5))
}
