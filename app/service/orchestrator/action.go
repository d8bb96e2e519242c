package orchestrator

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeposit
	ActionDeleteLast
)

func (k ActionKind) String() string {
	switch k {
	case ActionDeposit:
		return "DEPOSIT"
	case ActionDeleteLast:
		return "DELETE_LAST"
	default:
		return "NONE"
	}
}

type Action struct {
	Kind   ActionKind
	Amount int64
}

var (
	actionRe    = regexp.MustCompile(`(?i)\[\s*ACTION\s*:\s*([A-Z_]+)\s*(?::\s*([^\]]*))?\]`)
	separatorRe = regexp.MustCompile(`[.,\s_]`)
)

// ParseAction strips every directive from a model reply and interprets the last one.
// Anything missing or malformed becomes ActionNone.
func ParseAction(text string) (string, Action) {
	matches := actionRe.FindAllStringSubmatch(text, -1)
	visible := strings.TrimSpace(actionRe.ReplaceAllString(text, ""))

	if len(matches) == 0 {
		slog.Debug("Reply carries no action directive")
		return visible, Action{}
	}

	last := matches[len(matches)-1]
	switch strings.ToUpper(last[1]) {
	case "DEPOSIT":
		amount, err := strconv.ParseInt(separatorRe.ReplaceAllString(last[2], ""), 10, 64)
		if err != nil || amount <= 0 {
			slog.Warn("Ignoring malformed deposit directive", "directive", last[0])
			return visible, Action{}
		}
		return visible, Action{Kind: ActionDeposit, Amount: amount}
	case "DELETE_LAST":
		return visible, Action{Kind: ActionDeleteLast}
	case "NONE":
		return visible, Action{}
	default:
		slog.Warn("Ignoring unknown action directive", "directive", last[0])
		return visible, Action{}
	}
}
