package ledger

import (
	"time"

	"github.com/elliotchance/pie/v2"
)

const day = 24 * time.Hour

type Deposit struct {
	ID        int64     `json:"id"`
	Amount    int64     `json:"amount"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// State is derived from deposits and settings and is never persisted.
type State struct {
	TotalDebt          int64   `json:"total_debt"`
	TotalPaid          int64   `json:"total_paid"`
	RemainingDebt      int64   `json:"remaining_debt"`
	DaysRemaining      int     `json:"days_remaining"`
	DailyTarget        int64   `json:"daily_target"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

func ComputeState(deposits []Deposit, totalDebt int64, deadline, now time.Time) State {
	paid := TotalPaid(deposits)
	remaining := max(0, totalDebt-paid)
	days := DaysBetween(now, deadline)

	var target int64
	switch {
	case remaining <= 0:
		target = 0
	case days <= 0:
		target = remaining
	default:
		target = CeilToThousand(ceilDiv(remaining, int64(days)))
	}

	var progress float64
	if totalDebt > 0 {
		progress = min(100, float64(paid)/float64(totalDebt)*100)
	}

	return State{
		TotalDebt:          totalDebt,
		TotalPaid:          paid,
		RemainingDebt:      remaining,
		DaysRemaining:      days,
		DailyTarget:        target,
		ProgressPercentage: progress,
	}
}

// DaysBetween is floor((to - from) / 24h); negative once the deadline has passed.
func DaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}

	return int(days)
}

// CeilToThousand rounds up to the next multiple of 1000; non-positive values become 0.
func CeilToThousand(x int64) int64 {
	if x <= 0 {
		return 0
	}
	if x%1000 == 0 {
		return x
	}

	return (x/1000 + 1) * 1000
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

func TotalPaid(deposits []Deposit) int64 {
	return pie.Sum(pie.Map(deposits, func(d Deposit) int64 {
		return d.Amount
	}))
}

// TodayTotal sums deposits made on the same calendar day as now, in now's location.
func TodayTotal(deposits []Deposit, now time.Time) int64 {
	y, m, d := now.Date()

	return TotalPaid(pie.Filter(deposits, func(dep Deposit) bool {
		dy, dm, dd := dep.Timestamp.In(now.Location()).Date()
		return dy == y && dm == m && dd == d
	}))
}

// NewestFirst returns a copy ordered for display.
func NewestFirst(deposits []Deposit) []Deposit {
	return pie.SortUsing(append([]Deposit(nil), deposits...), func(a, b Deposit) bool {
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID > b.ID
		}
		return a.Timestamp.After(b.Timestamp)
	})
}
