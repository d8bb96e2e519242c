package money

import (
	"github.com/dustin/go-humanize"
)

// Format renders an amount the Indonesian way: "Rp 1.250.000".
func Format(amount int64) string {
	return "Rp " + humanize.FormatInteger("#.###,", int(amount))
}
