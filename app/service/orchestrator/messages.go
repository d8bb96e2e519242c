package orchestrator

import (
	"debtslayer/app/service/ratelimit"
	"errors"
)

var (
	ErrBlankInput = errors.New("message is blank")
	ErrThrottled  = errors.New("too many messages, wait a moment")
	ErrCancelled  = errors.New("turn was cancelled")
)

const (
	SourceRemote = "Chat Mai"
	SourceLocal  = "Mode offline"
)

const (
	msgTransient  = "⚠️ Mai sedang tidak bisa dihubungi. Coba kirim ulang sebentar lagi."
	msgAuth       = "🔑 API key ditolak. Periksa token model di konfigurasi."
	msgNotFound   = "🔍 Model tidak ditemukan. Periksa nama model dan base URL di konfigurasi."
	msgNetwork    = "📡 Tidak bisa terhubung ke server AI. Cek koneksi internet."
	msgServer     = "🛠️ Server AI sedang bermasalah. Tunggu sebentar lalu coba lagi."
	msgTimedOut   = "⏱️ Koneksi terputus, Mai tidak menjawab tepat waktu. Coba kirim ulang."
	msgEmptyReply = "..."
	msgDeleted    = "🗑️ Setoran terakhir %s sudah dihapus."
	msgNoDeposit  = "Tidak ada setoran yang bisa dihapus."
	msgSaveFailed = "⚠️ Setoran gagal dicatat, coba lagi nanti."
)

func failureMessage(cause ratelimit.Cause) string {
	switch cause {
	case ratelimit.CauseAuth:
		return msgAuth
	case ratelimit.CauseNotFound:
		return msgNotFound
	case ratelimit.CauseNetwork:
		return msgNetwork
	case ratelimit.CauseServer:
		return msgServer
	default:
		return msgTransient
	}
}
