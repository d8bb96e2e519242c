package amount

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	fractionalMillionRe = regexp.MustCompile(`(?:^|[^\d.,])(\d+)[.,](\d+)\s*(?:jt|juta)\b`)
	millionRe           = regexp.MustCompile(`(\d+)\s*(?:jt|juta)\b`)
	thousandRe          = regexp.MustCompile(`(\d+)\s*(?:rb|ribu|k)\b`)
	bareRe              = regexp.MustCompile(`\d+`)

	separators = strings.NewReplacer(".", "", ",", "")

	million   = decimal.NewFromInt(1_000_000)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// Parse extracts a rupiah amount from free text such as "50rb", "1.5jt" or "500.000".
// The second result is false when nothing usable was found or the amount is not positive.
func Parse(text string) (int64, bool) {
	lower := strings.ToLower(text)

	// "1.25jt" has to be read before separators are stripped, otherwise it becomes 125jt.
	if m := fractionalMillionRe.FindStringSubmatch(lower); m != nil {
		if value, err := decimal.NewFromString(m[1] + "." + m[2]); err == nil {
			if n, ok := positive(value.Mul(million)); ok {
				return n, true
			}
		}
	}

	stripped := separators.Replace(lower)

	if m := millionRe.FindStringSubmatch(stripped); m != nil {
		return scaled(m[1], 1_000_000)
	}
	if m := thousandRe.FindStringSubmatch(stripped); m != nil {
		return scaled(m[1], 1_000)
	}
	if m := bareRe.FindString(stripped); m != "" {
		return scaled(m, 1)
	}

	return 0, false
}

func scaled(digits string, factor int64) (int64, bool) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > math.MaxInt64/factor {
		return 0, false
	}

	return positive(decimal.NewFromInt(n * factor))
}

func positive(value decimal.Decimal) (int64, bool) {
	value = value.Truncate(0)
	if !value.IsPositive() || value.GreaterThan(maxAmount) {
		return 0, false
	}

	return value.IntPart(), true
}
