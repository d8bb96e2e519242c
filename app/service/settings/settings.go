package settings

import (
	"context"
	"debtslayer/app/config"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/storage"
	"debtslayer/app/util/broadcast"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const DateLayout = "2006-01-02"

const defaultDeadlineDays = 30

const (
	keyTotalDebt       = "total_debt"
	keyCustomDeadline  = "custom_deadline"
	keyInitialDeadline = "initial_deadline"
	keyPersonality     = "personality_mode"
	keyReminderHour    = "reminder_hour"
	keyReminderMinute  = "reminder_minute"
	keyOnboardingDone  = "onboarding_done"
	keySetupDate       = "setup_date"
	keyDailyUsage      = "daily_usage"
)

var (
	ErrInvalidDebt     = errors.New("total debt must be positive")
	ErrInvalidDeadline = errors.New("deadline must be a future YYYY-MM-DD date")
	ErrInvalidTime     = errors.New("reminder time out of range")
	ErrInvalidMode     = errors.New("unknown personality mode")
)

// Snapshot is the effective configuration of the debt: stored overrides on top of config defaults.
type Snapshot struct {
	TotalDebt      int64            `json:"total_debt"`
	Deadline       string           `json:"deadline"`
	CustomDeadline bool             `json:"custom_deadline"`
	Personality    personality.Mode `json:"personality"`
	ReminderHour   int              `json:"reminder_hour"`
	ReminderMinute int              `json:"reminder_minute"`
	OnboardingDone bool             `json:"onboarding_done"`
	SetupDate      string           `json:"setup_date,omitempty"`
}

// DeadlineTime is the instant the deadline date ends in loc.
func (s Snapshot) DeadlineTime(loc *time.Location) time.Time {
	day, err := time.ParseInLocation(DateLayout, s.Deadline, loc)
	if err != nil {
		return time.Time{}
	}

	return day.AddDate(0, 0, 1)
}

type Service struct {
	store *storage.Store
	cfg   *config.Config
	now   func() time.Time

	mu    sync.RWMutex
	snap  Snapshot
	usage DailyUsage

	updates *broadcast.Broadcaster[Snapshot]
}

func New(di *do.Injector) (*Service, error) {
	return NewService(context.Background(), do.MustInvoke[*storage.Store](di), do.MustInvoke[*config.Config](di))
}

func NewService(ctx context.Context, store *storage.Store, cfg *config.Config) (*Service, error) {
	s := &Service{
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		updates: broadcast.New[Snapshot]("settings", 4),
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload re-reads stored settings, persisting the initial deadline the first time none is known.
func (s *Service) Reload(ctx context.Context) error {
	values, err := s.store.Settings(ctx)
	if err != nil {
		return oops.Errorf("load settings: %w", err)
	}

	if values[keyCustomDeadline] == "" && s.cfg.Debt.Deadline == "" && values[keyInitialDeadline] == "" {
		initial := s.now().AddDate(0, 0, defaultDeadlineDays).Format(DateLayout)
		if err = s.store.SetSetting(ctx, keyInitialDeadline, initial); err != nil {
			return err
		}
		values[keyInitialDeadline] = initial
	}

	snap := s.resolve(values)
	usage := parseUsage(values[keyDailyUsage])

	s.mu.Lock()
	s.snap = snap
	s.usage = usage
	s.mu.Unlock()

	s.updates.Publish(snap)

	return nil
}

func (s *Service) resolve(values map[string]string) Snapshot {
	snap := Snapshot{
		TotalDebt:      s.cfg.Debt.Total,
		Personality:    personality.Balanced,
		ReminderHour:   s.cfg.Reminder.Hour,
		ReminderMinute: s.cfg.Reminder.Minute,
		OnboardingDone: values[keyOnboardingDone] == "true",
		SetupDate:      values[keySetupDate],
	}

	if v, err := strconv.ParseInt(values[keyTotalDebt], 10, 64); err == nil && v > 0 {
		snap.TotalDebt = v
	}

	switch {
	case values[keyCustomDeadline] != "":
		snap.Deadline = values[keyCustomDeadline]
		snap.CustomDeadline = true
	case s.cfg.Debt.Deadline != "":
		snap.Deadline = s.cfg.Debt.Deadline
	default:
		snap.Deadline = values[keyInitialDeadline]
	}

	if mode, err := personality.ParseMode(s.cfg.Debt.Personality); err == nil {
		snap.Personality = mode
	}
	if mode, err := personality.ParseMode(values[keyPersonality]); err == nil {
		snap.Personality = mode
	}

	if v, err := strconv.Atoi(values[keyReminderHour]); err == nil {
		snap.ReminderHour = v
	}
	if v, err := strconv.Atoi(values[keyReminderMinute]); err == nil {
		snap.ReminderMinute = v
	}

	return snap
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

func (s *Service) PersonalityMode() personality.Mode {
	return s.Snapshot().Personality
}

// Subscribe delivers every effective settings change.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	return s.updates.Subscribe()
}

func (s *Service) SetTotalDebt(ctx context.Context, total int64) error {
	if total <= 0 {
		return ErrInvalidDebt
	}

	return s.write(ctx, map[string]string{keyTotalDebt: strconv.FormatInt(total, 10)})
}

func (s *Service) SetDeadline(ctx context.Context, date string) error {
	if err := s.validateDeadline(date); err != nil {
		return err
	}

	return s.write(ctx, map[string]string{keyCustomDeadline: date})
}

// ResetDeadline drops the custom deadline, falling back to the configured or initial one.
func (s *Service) ResetDeadline(ctx context.Context) error {
	if err := s.store.DeleteSetting(ctx, keyCustomDeadline); err != nil {
		return err
	}

	return s.Reload(ctx)
}

func (s *Service) SetPersonality(ctx context.Context, mode string) error {
	m, err := personality.ParseMode(mode)
	if err != nil {
		return oops.Wrapf(ErrInvalidMode, "%s", mode)
	}

	return s.write(ctx, map[string]string{keyPersonality: string(m)})
}

func (s *Service) SetReminderTime(ctx context.Context, hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ErrInvalidTime
	}

	return s.write(ctx, map[string]string{
		keyReminderHour:   strconv.Itoa(hour),
		keyReminderMinute: strconv.Itoa(minute),
	})
}

// CompleteOnboarding stores the user's debt and deadline and starts a fresh chat.
func (s *Service) CompleteOnboarding(ctx context.Context, total int64, deadline string) error {
	if total <= 0 {
		return ErrInvalidDebt
	}
	if err := s.validateDeadline(deadline); err != nil {
		return err
	}

	if err := s.store.DeleteAllMessages(ctx); err != nil {
		return err
	}

	err := s.write(ctx, map[string]string{
		keyTotalDebt:      strconv.FormatInt(total, 10),
		keyCustomDeadline: deadline,
		keySetupDate:      s.now().Format(DateLayout),
		keyOnboardingDone: "true",
	})
	if err != nil {
		return err
	}

	slog.Info("Onboarding completed", "total_debt", total, "deadline", deadline)

	return nil
}

func (s *Service) validateDeadline(date string) error {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return oops.Wrapf(ErrInvalidDeadline, "invalid deadline %q", date)
	}

	now := s.now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if !day.After(today) {
		return ErrInvalidDeadline
	}

	return nil
}

func (s *Service) write(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if err := s.store.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}

	return s.Reload(ctx)
}
