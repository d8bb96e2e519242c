package debt

import (
	"context"
	"debtslayer/app/service/ledger"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"debtslayer/app/util/broadcast"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Snapshot is everything derived from the deposits and the current settings.
type Snapshot struct {
	State        ledger.State      `json:"state"`
	TodayDeposit int64             `json:"today_deposit"`
	Deposits     []ledger.Deposit  `json:"deposits"`
	Settings     settings.Snapshot `json:"settings"`
}

func (s Snapshot) HasDeposits() bool {
	return len(s.Deposits) > 0
}

type Service struct {
	store    *storage.Store
	settings *settings.Service
	now      func() time.Time

	mu       sync.RWMutex
	deposits []ledger.Deposit

	updates *broadcast.Broadcaster[Snapshot]
}

func New(di *do.Injector) (*Service, error) {
	return NewService(context.Background(), do.MustInvoke[*storage.Store](di), do.MustInvoke[*settings.Service](di))
}

func NewService(ctx context.Context, store *storage.Store, settingsSvc *settings.Service) (*Service, error) {
	s := &Service{
		store:    store,
		settings: settingsSvc,
		now:      time.Now,
		updates:  broadcast.New[Snapshot]("debt", 4),
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Run keeps the snapshot in sync with deposit and settings changes made elsewhere.
func (s *Service) Run(ctx context.Context) {
	deposits, unsubscribeDeposits := s.store.SubscribeDeposits()
	defer unsubscribeDeposits()

	changes, unsubscribeSettings := s.settings.Subscribe()
	defer unsubscribeSettings()

	// pick up anything that changed before the subscriptions existed
	if err := s.Reload(ctx); err != nil {
		slog.Error("Failed to reload debt state", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-deposits:
			if !ok {
				return
			}
			s.apply(list)
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.recompute()
		}
	}
}

func (s *Service) Reload(ctx context.Context) error {
	list, err := s.store.Deposits(ctx)
	if err != nil {
		return oops.Errorf("load deposits: %w", err)
	}

	s.apply(list)

	return nil
}

func (s *Service) apply(deposits []ledger.Deposit) {
	s.mu.Lock()
	s.deposits = deposits
	s.mu.Unlock()

	s.recompute()
}

func (s *Service) recompute() {
	s.updates.Publish(s.compute())
}

func (s *Service) compute() Snapshot {
	now := s.now()
	cfg := s.settings.Snapshot()

	s.mu.RLock()
	deposits := ledger.NewestFirst(s.deposits)
	s.mu.RUnlock()

	return Snapshot{
		State:        ledger.ComputeState(deposits, cfg.TotalDebt, cfg.DeadlineTime(now.Location()), now),
		TodayDeposit: ledger.TodayTotal(deposits, now),
		Deposits:     deposits,
		Settings:     cfg,
	}
}

// Snapshot is computed against the current clock, so days remaining rolls over at midnight.
func (s *Service) Snapshot() Snapshot {
	return s.compute()
}

func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	return s.updates.Subscribe()
}

func (s *Service) RecordDeposit(ctx context.Context, amount int64, source string) (ledger.Deposit, error) {
	d, err := s.store.SaveDeposit(ctx, amount, source, s.now())
	if err != nil {
		return ledger.Deposit{}, err
	}

	if err = s.Reload(ctx); err != nil {
		return d, err
	}

	slog.Info("Deposit recorded", "amount", amount, "source", source)

	return d, nil
}

// DeleteLastDeposit removes the most recent deposit. The bool is false when there was none.
func (s *Service) DeleteLastDeposit(ctx context.Context) (ledger.Deposit, bool, error) {
	d, ok, err := s.store.DeleteLastDeposit(ctx)
	if err != nil || !ok {
		return d, ok, err
	}

	if err = s.Reload(ctx); err != nil {
		return d, true, err
	}

	slog.Info("Last deposit deleted", "amount", d.Amount, "id", d.ID)

	return d, true, nil
}

func (s *Service) DeleteDeposit(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.DeleteDeposit(ctx, id)
	if err != nil || !ok {
		return ok, err
	}

	return true, s.Reload(ctx)
}
