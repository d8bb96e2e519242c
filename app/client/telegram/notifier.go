package telegram

import (
	"context"
	"debtslayer/app/config"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const (
	sendRetries     = 3
	initialInterval = 500 * time.Millisecond
)

type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

func New(di *do.Injector) (Notifier, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Reminder.Telegram.Token == "" {
		return LogNotifier{}, nil
	}

	return NewBotNotifier(cfg.Reminder.Telegram.Token, tgbotapi.APIEndpoint, cfg.Reminder.Telegram.ChatID), nil
}

// BotNotifier delivers messages to one chat. The bot is created on first use so a missing
// network at startup does not prevent the service from starting.
type BotNotifier struct {
	token    string
	endpoint string
	chatID   int64
	interval time.Duration

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewBotNotifier(token, endpoint string, chatID int64) *BotNotifier {
	return &BotNotifier{
		token:    token,
		endpoint: endpoint,
		chatID:   chatID,
		interval: initialInterval,
	}
}

func (n *BotNotifier) Notify(ctx context.Context, title, body string) error {
	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body)))
	msg.ParseMode = tgbotapi.ModeHTML

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(backoff.WithInitialInterval(n.interval)), sendRetries),
		ctx,
	)

	err := backoff.Retry(func() error {
		bot, err := n.client()
		if err != nil {
			return err
		}

		if _, err = bot.Send(msg); err != nil {
			var tgErr *tgbotapi.Error
			if errors.As(err, &tgErr) && tgErr.Code >= 400 && tgErr.Code < 500 && tgErr.Code != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		return nil
	}, policy)
	if err != nil {
		return oops.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

func (n *BotNotifier) client() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bot != nil {
		return n.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(n.token, n.endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	n.bot = bot

	return bot, nil
}

// LogNotifier is used when no bot is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, title, body string) error {
	slog.Info("Reminder", "title", title, "body", body)
	return nil
}
