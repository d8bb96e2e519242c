package orchestrator

import (
	"context"
	"debtslayer/app/client/connectivity"
	"debtslayer/app/client/model"
	"debtslayer/app/config"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/ratelimit"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"log/slog"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Named injector keys of the two model clients.
const (
	PrimaryModel   = "primary"
	SecondaryModel = "secondary"
)

func New(di *do.Injector) (*Orchestrator, error) {
	cfg := do.MustInvoke[*config.Config](di)
	store := do.MustInvoke[*storage.Store](di)
	settingsSvc := do.MustInvoke[*settings.Service](di)

	turns, err := store.RecentTurns(context.Background(), cfg.Orchestrator.HistorySize)
	if err != nil {
		return nil, oops.Errorf("load recent turns: %w", err)
	}

	primaryWindow := ratelimit.NewWindow(cfg.Models.Primary.RPM, cfg.Models.Primary.RPD)
	primaryWindow.Restore(settingsSvc.DailyRequests(Primary.String()))

	secondaryWindow := ratelimit.NewWindow(cfg.Models.Secondary.RPM, cfg.Models.Secondary.RPD)
	secondaryWindow.Restore(settingsSvc.DailyRequests(Secondary.String()))

	slog.Debug("Restored daily request counters",
		"primary", primaryWindow.Usage().Day,
		"secondary", secondaryWindow.Usage().Day)

	return NewOrchestrator(Deps{
		Primary:         do.MustInvokeNamed[model.Client](di, PrimaryModel),
		Secondary:       do.MustInvokeNamed[model.Client](di, SecondaryModel),
		PrimaryWindow:   primaryWindow,
		SecondaryWindow: secondaryWindow,
		Ledger:          do.MustInvoke[*debt.Service](di),
		Journal:         store,
		Prompter:        personality.NewPrompter(settingsSvc),
		Probe:           do.MustInvoke[connectivity.Probe](di),
		Usage:           settingsSvc,
		History:         turns,
	}, Options{
		Cooldown:       cfg.Orchestrator.Cooldown,
		RequestTimeout: cfg.Orchestrator.RequestTimeout,
		FallbackPause:  cfg.Orchestrator.FallbackPause,
		HistorySize:    cfg.Orchestrator.HistorySize,
	}), nil
}
