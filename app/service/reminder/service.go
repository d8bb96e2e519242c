package reminder

import (
	"context"
	"debtslayer/app/client/telegram"
	"debtslayer/app/config"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const pruneSpec = "0 30 3 * * *"

// Service runs the daily reminder and the retention cleanup on a cron schedule.
type Service struct {
	cfg      *config.Config
	debtSvc  *debt.Service
	settings *settings.Service
	store    *storage.Store
	notifier telegram.Notifier
	picker   personality.Picker
	now      func() time.Time

	cron *cron.Cron

	mu       sync.Mutex
	entry    cron.EntryID
	schedule string
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*debt.Service](di),
		do.MustInvoke[*settings.Service](di),
		do.MustInvoke[*storage.Store](di),
		do.MustInvoke[telegram.Notifier](di),
	), nil
}

func NewService(
	cfg *config.Config,
	debtSvc *debt.Service,
	settingsSvc *settings.Service,
	store *storage.Store,
	notifier telegram.Notifier,
) *Service {
	logger := cronLogger{}

	return &Service{
		cfg:      cfg,
		debtSvc:  debtSvc,
		settings: settingsSvc,
		store:    store,
		notifier: notifier,
		picker:   personality.RandomPicker{},
		now:      time.Now,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(pruneSpec, func() {
		if err := s.Prune(ctx); err != nil {
			slog.Error("Retention cleanup failed", "error", err)
		}
	}); err != nil {
		return oops.Errorf("schedule cleanup: %w", err)
	}

	if s.cfg.Reminder.Enabled {
		if err := s.reschedule(ctx, s.settings.Snapshot()); err != nil {
			return err
		}
	}

	changes, unsubscribe := s.settings.Subscribe()
	defer unsubscribe()

	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
	}()

	slog.Info("Scheduler started", "reminder", s.cfg.Reminder.Enabled)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-changes:
			if !ok {
				return nil
			}
			if !s.cfg.Reminder.Enabled {
				continue
			}
			if err := s.reschedule(ctx, snap); err != nil {
				slog.Error("Failed to reschedule reminder", "error", err)
			}
		}
	}
}

func dailySpec(hour, minute int) string {
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}

func (s *Service) reschedule(ctx context.Context, snap settings.Snapshot) error {
	spec := dailySpec(snap.ReminderHour, snap.ReminderMinute)

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.schedule {
		return nil
	}

	id, err := s.cron.AddFunc(spec, func() {
		if err := s.SendReminder(ctx); err != nil {
			slog.Error("Failed to send reminder", "error", err)
		}
	})
	if err != nil {
		return oops.Errorf("schedule reminder %q: %w", spec, err)
	}

	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	s.entry = id
	s.schedule = spec

	slog.Info("Reminder scheduled", "hour", snap.ReminderHour, "minute", snap.ReminderMinute)

	return nil
}

// SendReminder notifies the user about today's progress. It is a no-op once the debt is paid.
func (s *Service) SendReminder(ctx context.Context) error {
	snap := s.debtSvc.Snapshot()
	if snap.Settings.Deadline == "" {
		slog.Debug("Reminder skipped, no deadline")
		return nil
	}

	r, ok := personality.BuildReminder(s.picker, snap.Settings.Personality, snap.State, snap.TodayDeposit)
	if !ok {
		slog.Debug("Reminder skipped, nothing to remind about")
		return nil
	}

	if err := s.notifier.Notify(ctx, r.Title, r.Body); err != nil {
		return oops.Errorf("notify: %w", err)
	}

	slog.Info("Reminder sent", "title", r.Title)

	return nil
}

// Prune removes turns and chat messages past their retention.
func (s *Service) Prune(ctx context.Context) error {
	now := s.now()

	turns, err := s.store.PruneTurns(ctx, now.Add(-s.cfg.Retention.Turns))
	if err != nil {
		return err
	}

	messages, err := s.store.PruneMessages(ctx, now.Add(-s.cfg.Retention.Messages))
	if err != nil {
		return err
	}

	slog.Info("Retention cleanup done", "turns", turns, "messages", messages)

	return nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
