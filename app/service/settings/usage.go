package settings

import (
	"context"
	"debtslayer/app/client/model"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DailyUsage counts remote requests and tokens for one UTC date.
type DailyUsage struct {
	Date     string         `json:"date"`
	Requests map[string]int `json:"requests"`
	Tokens   model.Usage    `json:"tokens"`
}

func parseUsage(raw string) DailyUsage {
	var u DailyUsage
	if raw == "" {
		return u
	}

	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		slog.Warn("Ignoring malformed daily usage", "error", err)
		return DailyUsage{}
	}

	return u
}

func utcDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DailyUsage returns today's counters; yesterday's are reported as empty.
func (s *Service) DailyUsage() DailyUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := utcDate(s.now())
	if s.usage.Date != today {
		return DailyUsage{Date: today, Requests: map[string]int{}}
	}

	u := s.usage
	u.Requests = make(map[string]int, len(s.usage.Requests))
	for k, v := range s.usage.Requests {
		u.Requests[k] = v
	}

	return u
}

// DailyRequests returns the UTC date and number of requests sent to modelName on it.
func (s *Service) DailyRequests(modelName string) (string, int) {
	u := s.DailyUsage()
	return u.Date, u.Requests[modelName]
}

// RecordRequest counts one request sent to modelName.
func (s *Service) RecordRequest(ctx context.Context, modelName string) error {
	return s.updateUsage(ctx, func(u *DailyUsage) {
		u.Requests[modelName]++
	})
}

// RecordTokens adds the token usage of a completed reply.
func (s *Service) RecordTokens(ctx context.Context, usage model.Usage) error {
	return s.updateUsage(ctx, func(u *DailyUsage) {
		u.Tokens = u.Tokens.Add(usage)
	})
}

func (s *Service) updateUsage(ctx context.Context, apply func(u *DailyUsage)) error {
	s.mu.Lock()
	today := utcDate(s.now())
	if s.usage.Date != today || s.usage.Requests == nil {
		s.usage = DailyUsage{Date: today, Requests: map[string]int{}}
	}
	apply(&s.usage)

	data, err := json.Marshal(s.usage)
	s.mu.Unlock()

	if err != nil {
		return oops.Errorf("marshal usage: %w", err)
	}

	return s.store.SetSetting(ctx, keyDailyUsage, string(data))
}
