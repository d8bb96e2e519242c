package ratelimit

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

type Kind int

const (
	Transient Kind = iota
	PerMinute
	PerDay
)

func (k Kind) String() string {
	switch k {
	case PerMinute:
		return "per_minute"
	case PerDay:
		return "per_day"
	default:
		return "transient"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k Kind) IsRateLimit() bool {
	return k == PerMinute || k == PerDay
}

const (
	defaultRetryAfter = 60 * time.Second
	maxRetrySeconds   = 300
)

var (
	rateLimitRe = regexp.MustCompile(`(?i)\b429\b|quota|resource_exhausted|\brate\b|rate[ _-]?limit`)
	dailyRe     = regexp.MustCompile(`(?i)\b(?:day|daily|rpd)\b|per[ _-]?day`)

	retryRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)retry(?:\s+in|\s+after)?\s+(\d+)(?:\.\d+)?\s*s`),
		regexp.MustCompile(`(?i)retry_?delay["':\s]+(\d+)`),
		regexp.MustCompile(`(?i)retry_?after["':\s]+(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*seconds?`),
	}
)

type statusCoder interface {
	StatusCode() int
}

// Classify decides whether a failed remote call hit a quota. dailyExhausted reports whether
// the local daily counter of the failing model has already reached its quota.
func Classify(err error, dailyExhausted bool) Kind {
	if err == nil {
		return Transient
	}

	msg := err.Error()

	limited := rateLimitRe.MatchString(msg)
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		limited = true
	}
	if !limited {
		return Transient
	}

	if dailyExhausted || dailyRe.MatchString(msg) {
		return PerDay
	}

	return PerMinute
}

// RetryAfter estimates how long the model stays unusable after a rate-limit failure.
func RetryAfter(err error, kind Kind, now time.Time) time.Duration {
	if kind == PerDay {
		return UntilUTCMidnight(now)
	}
	if err == nil {
		return defaultRetryAfter
	}

	msg := err.Error()
	for _, re := range retryRes {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}

		seconds, convErr := strconv.Atoi(m[1])
		if convErr == nil && seconds >= 1 && seconds <= maxRetrySeconds {
			return time.Duration(seconds) * time.Second
		}
	}

	return defaultRetryAfter
}

// UntilUTCMidnight is never shorter than a minute.
func UntilUTCMidnight(now time.Time) time.Duration {
	now = now.UTC()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)

	return max(midnight.Sub(now), time.Minute)
}
