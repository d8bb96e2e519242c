package orchestrator

import (
	"debtslayer/app/service/storage"
	"fmt"
	"strings"
	"time"
)

type historyEntry struct {
	User      string
	Assistant string
	Timestamp time.Time
}

// history keeps the last few turns that go into the turn prompt.
type history struct {
	size    int
	entries []historyEntry
}

func newHistory(size int, seed []storage.Turn) *history {
	h := &history{size: size}
	for _, t := range seed {
		h.add(t.UserText, t.AssistantText, t.Timestamp)
	}

	return h
}

func (h *history) add(user, assistant string, ts time.Time) {
	if h.size <= 0 {
		return
	}

	entry := historyEntry{
		User:      user,
		Assistant: assistant,
		Timestamp: ts,
	}

	if len(h.entries) >= h.size {
		h.entries = append(h.entries[1:], entry)
	} else {
		h.entries = append(h.entries, entry)
	}
}

func (h *history) format() string {
	if len(h.entries) == 0 {
		return ""
	}

	var builder strings.Builder

	for _, e := range h.entries {
		builder.WriteString(fmt.Sprintf("%s - User: %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.User))
		builder.WriteString(fmt.Sprintf("%s - Mai: %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Assistant))
	}

	return builder.String()
}
