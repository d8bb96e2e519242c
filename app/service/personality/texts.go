package personality

import (
	"debtslayer/app/service/ledger"
	"debtslayer/app/util/money"
	"fmt"
)

var reactions = map[Mode]struct {
	high, met, below []string
}{
	Strict: {
		high: []string{
			"Tumben serius. Jangan cepat puas, ini baru awal.",
			"Begini seharusnya dari dulu. Pertahankan.",
			"Oke, kali ini kuakui kamu berusaha.",
		},
		met: []string{
			"Pas target. Itu kewajiban, bukan prestasi.",
			"Cukup. Besok minimal sama.",
			"Sesuai target, tidak lebih.",
		},
		below: []string{
			"Targetnya sudah jelas. Alasan tidak mengurangi hutang.",
			"Kurang. Besok harus ditebus.",
			"Ini belum serius. Aku tunggu sisanya.",
		},
	},
	Balanced: {
		high: []string{
			"Wah, sebanyak ini? Aku sedikit terkesan.",
			"Bagus. Dengan tempo begini hutangmu cepat selesai.",
			"Akhirnya kamu paham maksudku. Pertahankan.",
		},
		met: []string{
			"Tepat target. Jaga ritme ini setiap hari.",
			"Lumayan, kamu mulai konsisten.",
			"Kalau tiap hari begini, aku tidak perlu galak.",
		},
		below: []string{
			"Segini saja? Targetnya sudah kusebut.",
			"Masih kurang. Besok aku mau lihat usaha lebih.",
			"Hmm. Aku berharap lebih dari ini.",
		},
	},
	Gentle: {
		high: []string{
			"Keren sekali hari ini! Aku bangga 😊",
			"Usahamu kelihatan. Terus begitu ya!",
			"Luar biasa, kamu melampaui target jauh!",
		},
		met: []string{
			"Target tercapai. Aku senang melihatnya.",
			"Konsisten begini ya, kamu hebat.",
			"Bagus, pelan-pelan tapi pasti.",
		},
		below: []string{
			"Hari ini mungkin berat. Besok coba lagi ya.",
			"Tidak apa-apa, yang penting tetap jalan.",
			"Aku percaya besok kamu bisa lebih baik.",
		},
	},
}

// DepositReaction is the personality line after a deposit of amount against the daily target.
func DepositReaction(p Picker, mode Mode, amount, target int64) string {
	r, ok := reactions[mode]
	if !ok {
		r = reactions[Balanced]
	}

	switch {
	case target > 0 && amount >= target*2:
		return p.Pick(r.high)
	case amount >= target:
		return p.Pick(r.met)
	default:
		return p.Pick(r.below)
	}
}

// Greeting opens a session based on where the user stands today.
func Greeting(p Picker, state ledger.State, todayDeposit int64, hasDeposits bool) string {
	remaining := money.Format(state.RemainingDebt)
	target := money.Format(state.DailyTarget)

	switch {
	case state.RemainingDebt <= 0 && state.TotalDebt > 0:
		return p.Pick([]string{
			"Lunas. Jangan bikin hutang baru, dengar?",
			"Semua sudah dibayar. ...Ya, kamu berhasil.",
			"Hutangnya habis. Aneh juga tidak ada yang perlu ditagih.",
		})
	case state.DaysRemaining <= 0 && state.RemainingDebt > 0:
		return fmt.Sprintf("Deadline sudah lewat. Sisa %s harus dibayar sekarang.", remaining)
	case !hasDeposits:
		return fmt.Sprintf("Hai, aku Mai. Hutangmu %s dan harus lunas dalam %d hari. Target harianmu %s. "+
			"Kalau mau setor, tulis \"setor\" diikuti nominalnya.", remaining, state.DaysRemaining, target)
	case state.DaysRemaining <= 7:
		return fmt.Sprintf("Tinggal %d hari, sisa %s. Setor sekarang.", state.DaysRemaining, remaining)
	case todayDeposit > 0 && todayDeposit >= state.DailyTarget:
		return fmt.Sprintf("Hari ini sudah setor %s, target tercapai. Sisa hutang %s.",
			money.Format(todayDeposit), remaining)
	case todayDeposit > 0:
		return fmt.Sprintf("Sudah setor %s hari ini, kurang %s lagi dari target %s.",
			money.Format(todayDeposit), money.Format(state.DailyTarget-todayDeposit), target)
	default:
		return fmt.Sprintf("Belum setor hari ini. Target %s, sisa hutang %s.", target, remaining)
	}
}

type Reminder struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// BuildReminder returns false when there is nothing left to remind about.
func BuildReminder(p Picker, mode Mode, state ledger.State, todayDeposit int64) (Reminder, bool) {
	if state.RemainingDebt <= 0 {
		return Reminder{}, false
	}

	days := state.DaysRemaining
	remaining := money.Format(state.RemainingDebt)
	target := money.Format(state.DailyTarget)

	switch {
	case days < 0:
		return Reminder{
			Title: fmt.Sprintf("🚨 Deadline lewat %d hari!", -days),
			Body:  overdueBody(p, mode, -days, remaining),
		}, true
	case days == 0:
		return Reminder{
			Title: "🚨 Hari ini deadline!",
			Body:  fmt.Sprintf("Sisa hutang %s harus lunas hari ini.", remaining),
		}, true
	case days <= 3 && todayDeposit < state.DailyTarget:
		return Reminder{
			Title: fmt.Sprintf("🚨 Kritis! Tinggal %d hari", days),
			Body:  fmt.Sprintf("Sisa hutang %s. Target hari ini %s. Jangan ditunda.", remaining, target),
		}, true
	case days <= 7 && todayDeposit == 0:
		return Reminder{
			Title: "⚠️ Urgent dari Mai",
			Body:  fmt.Sprintf("Tinggal %d hari dan belum ada setoran hari ini. Target %s.", days, target),
		}, true
	case todayDeposit == 0:
		return Reminder{
			Title: "📢 Reminder dari Mai",
			Body:  dailyBody(p, mode, days, target),
		}, true
	case todayDeposit >= state.DailyTarget:
		return Reminder{
			Title: "✅ Target hari ini tercapai",
			Body: fmt.Sprintf("Sudah setor %s. %s Sisa %s.", money.Format(todayDeposit),
				DepositReaction(p, mode, todayDeposit, state.DailyTarget), money.Format(state.RemainingDebt)),
		}, true
	default:
		return Reminder{
			Title: fmt.Sprintf("⚡ Kurang %s lagi", money.Format(state.DailyTarget-todayDeposit)),
			Body:  fmt.Sprintf("Baru %s dari target %s. Ayo selesaikan.", money.Format(todayDeposit), target),
		}, true
	}
}

func overdueBody(p Picker, mode Mode, daysLate int, remaining string) string {
	switch mode {
	case Strict:
		return p.Pick([]string{
			fmt.Sprintf("Terlambat %d hari. %s belum dibayar. Bayar sekarang.", daysLate, remaining),
			fmt.Sprintf("%d hari lewat deadline dan %s masih menunggu.", daysLate, remaining),
		})
	case Gentle:
		return p.Pick([]string{
			fmt.Sprintf("Sudah lewat %d hari, masih ada %s. Pelan-pelan selesaikan ya.", daysLate, remaining),
			fmt.Sprintf("Terlambat %d hari, tapi belum terlambat untuk melunasi %s.", daysLate, remaining),
		})
	default:
		return p.Pick([]string{
			fmt.Sprintf("Deadline lewat %d hari. Sisa %s perlu segera diselesaikan.", daysLate, remaining),
			fmt.Sprintf("Sudah %d hari dari deadline, masih ada %s.", daysLate, remaining),
		})
	}
}

func dailyBody(p Picker, mode Mode, days int, target string) string {
	switch mode {
	case Strict:
		return p.Pick([]string{
			fmt.Sprintf("Target hari ini %s. Jangan ditunda.", target),
			fmt.Sprintf("Tinggal %d hari. Setor %s sekarang.", days, target),
		})
	case Gentle:
		return p.Pick([]string{
			fmt.Sprintf("Target hari ini %s. Semangat ya 😊", target),
			fmt.Sprintf("Pelan-pelan saja, target hari ini %s.", target),
		})
	default:
		return p.Pick([]string{
			fmt.Sprintf("Jangan lupa target hari ini %s.", target),
			fmt.Sprintf("Tinggal %d hari lagi. Target hari ini %s.", days, target),
		})
	}
}
