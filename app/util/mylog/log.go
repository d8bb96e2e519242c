package mylog

import (
	"context"
	"debtslayer/app/config"
	"io"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// Output is where console logs go. The mcp command keeps stdout for the protocol, so it is stderr.
var Output io.Writer = os.Stderr

func Preinit() {
	slog.SetDefault(slog.New(console.NewHandler(Output, &console.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})))
}

func Init(cfg *config.Config) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return oops.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	router := slogmulti.Router()

	router = router.Add(console.NewHandler(Output, &console.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			telegramFilter,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

// telegramFilter forwards errors and records explicitly tagged with telegram=true.
func telegramFilter(_ context.Context, r slog.Record) bool {
	hasTelegram := false

	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "telegram" {
			hasTelegram = true
			return false
		}

		return true
	})

	return r.Level >= slog.LevelError || hasTelegram
}
