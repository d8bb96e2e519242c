package ratelimit

import (
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Window tracks local request counts for one model. It only pre-empts calls that the
// provider would certainly reject; the provider stays the authority.
type Window struct {
	rpm int
	rpd int
	now func() time.Time

	mu           sync.Mutex
	minute       []time.Time
	day          string
	dayCount     int
	blockedUntil time.Time
	blockedKind  Kind
}

func NewWindow(rpm, rpd int) *Window {
	return &Window{
		rpm: rpm,
		rpd: rpd,
		now: time.Now,
	}
}

func (w *Window) WithClock(now func() time.Time) *Window {
	w.now = now
	return w
}

// Allow reports whether a call may be attempted now; otherwise it returns the quota that is exhausted.
func (w *Window) Allow() (Kind, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.roll(now)

	if now.Before(w.blockedUntil) {
		return w.blockedKind, false
	}
	if w.rpd > 0 && w.dayCount >= w.rpd {
		return PerDay, false
	}
	if w.rpm > 0 && len(w.minute) >= w.rpm {
		return PerMinute, false
	}

	return Transient, true
}

func (w *Window) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.roll(now)

	w.minute = append(w.minute, now)
	w.dayCount++
}

// Block marks the model unusable until the given time after the provider rejected a call.
func (w *Window) Block(kind Kind, until time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if until.After(w.blockedUntil) {
		w.blockedUntil = until
		w.blockedKind = kind
	}
}

func (w *Window) DailyExhausted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.roll(w.now())

	return w.rpd > 0 && w.dayCount >= w.rpd
}

// Restore seeds the daily counter from a persisted value; stale dates are ignored.
func (w *Window) Restore(day string, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.roll(w.now())
	if day == w.day && count > w.dayCount {
		w.dayCount = count
	}
}

type Usage struct {
	Minute       int       `json:"minute"`
	Day          int       `json:"day"`
	RPM          int       `json:"rpm"`
	RPD          int       `json:"rpd"`
	BlockedUntil time.Time `json:"blocked_until,omitzero"`
}

func (w *Window) Usage() Usage {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.roll(now)

	u := Usage{
		Minute: len(w.minute),
		Day:    w.dayCount,
		RPM:    w.rpm,
		RPD:    w.rpd,
	}
	if now.Before(w.blockedUntil) {
		u.BlockedUntil = w.blockedUntil
	}

	return u
}

func (w *Window) roll(now time.Time) {
	today := now.UTC().Format(dateLayout)
	if today != w.day {
		w.day = today
		w.dayCount = 0
	}

	cutoff := now.Add(-time.Minute)
	kept := w.minute[:0]
	for _, ts := range w.minute {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.minute = kept
}
