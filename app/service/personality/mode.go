package personality

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Mode string

const (
	Strict   Mode = "STRICT"
	Balanced Mode = "BALANCED"
	Gentle   Mode = "GENTLE"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case Strict, Balanced, Gentle:
		return m, nil
	default:
		return "", fmt.Errorf("unknown personality mode %q", s)
	}
}

func (m Mode) describe() string {
	switch m {
	case Strict:
		return "STRICT: tegas, kritis, tanpa basa-basi"
	case Gentle:
		return "GENTLE: lembut dan menyemangati, tetap jujur soal angka"
	default:
		return "BALANCED: tegas tapi masih mau memuji kalau pantas"
	}
}

// Picker chooses one line out of several equivalent ones.
type Picker interface {
	Pick(options []string) string
}

type RandomPicker struct{}

func (RandomPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[rand.IntN(len(options))]
}

// FirstPicker makes output deterministic.
type FirstPicker struct{}

func (FirstPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[0]
}
