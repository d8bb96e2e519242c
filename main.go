package main

import (
	"context"
	"debtslayer/app/client/connectivity"
	"debtslayer/app/client/model"
	"debtslayer/app/client/telegram"
	"debtslayer/app/config"
	"debtslayer/app/service/api"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/engine"
	"debtslayer/app/service/mcpserver"
	"debtslayer/app/service/orchestrator"
	"debtslayer/app/service/reminder"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"debtslayer/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

func main() {
	mylog.Preinit()

	root := &cobra.Command{
		Use:           "debtslayer",
		Short:         "Debt repayment tracker with a personality-driven assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, the reminder scheduler and the assistant",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "chat",
			Short: "Chat with the assistant in the terminal",
			RunE:  runChat,
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Expose the ledger and the assistant as MCP tools over stdio",
			RunE:  runMCP,
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func bootstrap() (*do.Injector, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err = mylog.Init(cfg); err != nil {
		return nil, nil, err
	}

	di := do.New()
	do.ProvideValue(di, cfg)

	do.Provide(di, storage.New)
	do.Provide(di, settings.New)
	do.Provide(di, debt.New)
	do.Provide(di, connectivity.New)
	do.Provide(di, telegram.New)
	do.ProvideNamed(di, orchestrator.PrimaryModel, func(di *do.Injector) (model.Client, error) {
		return model.New(orchestrator.PrimaryModel, cfg.Models.Primary)
	})
	do.ProvideNamed(di, orchestrator.SecondaryModel, func(di *do.Injector) (model.Client, error) {
		return model.New(orchestrator.SecondaryModel, cfg.Models.Secondary)
	})
	do.Provide(di, orchestrator.New)
	do.Provide(di, reminder.New)
	do.Provide(di, api.New)
	do.Provide(di, mcpserver.New)
	do.Provide(di, engine.New)

	return di, cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigint:
			log.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// runCore starts the loops every command needs: ledger sync and connectivity watch.
func runCore(ctx context.Context, g *errgroup.Group, di *do.Injector, cfg *config.Config) {
	debtSvc := do.MustInvoke[*debt.Service](di)
	orch := do.MustInvoke[*orchestrator.Orchestrator](di)

	g.Go(func() error {
		debtSvc.Run(ctx)
		return nil
	})

	if cfg.Connectivity.Address != "" {
		probe := do.MustInvoke[connectivity.Probe](di)
		g.Go(func() error {
			connectivity.Watch(ctx, probe, cfg.Connectivity.WatchInterval, func() {
				if orch.Cancel() {
					slog.Info("Cancelled in-flight message after connectivity loss")
				}
			})
			return nil
		})
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	di, cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer di.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	runCore(gctx, g, di, cfg)

	g.Go(func() error {
		return do.MustInvoke[*reminder.Service](di).Run(gctx)
	})
	g.Go(func() error {
		return do.MustInvoke[*api.Server](di).Run(gctx)
	})

	slog.Info("Service started", "addr", cfg.HTTP.Addr)

	return g.Wait()
}

func runChat(_ *cobra.Command, _ []string) error {
	di, cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer di.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	runCore(gctx, g, di, cfg)

	g.Go(func() error {
		// leaving the chat stops the background loops too
		defer cancel()
		return do.MustInvoke[*engine.Service](di).Run(gctx)
	})

	return g.Wait()
}

func runMCP(_ *cobra.Command, _ []string) error {
	di, cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer di.Shutdown()

	ctx, cancel := signalContext()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	runCore(gctx, g, di, cfg)

	g.Go(func() error {
		defer cancel()
		return do.MustInvoke[*mcpserver.Service](di).Serve(gctx, os.Stdin, os.Stdout)
	})

	return g.Wait()
}
