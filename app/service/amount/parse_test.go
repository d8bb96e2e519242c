package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text   string
		amount int64
		ok     bool
	}{
		{"50rb", 50_000, true},
		{"1jt", 1_000_000, true},
		{"notanumber", 0, false},
		{"34112", 34_112, true},
		{"setor 50 ribu", 50_000, true},
		{"nabung 20k hari ini", 20_000, true},
		{"bayar 2 juta", 2_000_000, true},
		{"1.5jt", 1_500_000, true},
		{"1,5 juta", 1_500_000, true},
		{"1.25jt", 1_250_000, true},
		{"bayar 2.000.000 jt", 2_000_000_000_000, true},
		{"0.0jt", 0, false},
		{"Rp 500.000", 500_000, true},
		{"transfer 1,000,000", 1_000_000, true},
		{"SETOR 75RB", 75_000, true},
		{"0", 0, false},
		{"setor 0rb", 0, false},
		{"99999999999999999999", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			amount, ok := Parse(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.amount, amount)
		})
	}
}

func TestParsePrefersMillionOverThousand(t *testing.T) {
	amount, ok := Parse("1jt 500rb")
	assert.True(t, ok)
	assert.Equal(t, int64(1_000_000), amount)
}

func TestParseDropsSubRupiahFraction(t *testing.T) {
	amount, ok := Parse("1.2345678jt")
	assert.True(t, ok)
	assert.Equal(t, int64(1_234_567), amount)
}
