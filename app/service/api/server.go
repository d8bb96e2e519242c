package api

import (
	"context"
	"debtslayer/app/config"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/orchestrator"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/settings"
	"debtslayer/app/service/storage"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP surface of the assistant and the ledger.
type Server struct {
	addr     string
	app      *fiber.App
	orch     *orchestrator.Orchestrator
	debtSvc  *debt.Service
	settings *settings.Service
	store    *storage.Store
	picker   personality.Picker
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(
		do.MustInvoke[*config.Config](di).HTTP.Addr,
		do.MustInvoke[*orchestrator.Orchestrator](di),
		do.MustInvoke[*debt.Service](di),
		do.MustInvoke[*settings.Service](di),
		do.MustInvoke[*storage.Store](di),
	), nil
}

func NewServer(
	addr string,
	orch *orchestrator.Orchestrator,
	debtSvc *debt.Service,
	settingsSvc *settings.Service,
	store *storage.Store,
) *Server {
	s := &Server{
		addr:     addr,
		orch:     orch,
		debtSvc:  debtSvc,
		settings: settingsSvc,
		store:    store,
		picker:   personality.RandomPicker{},
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "debtslayer",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(fiberrecover.New())
	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	api.Post("/chat", s.postChat)
	api.Post("/chat/cancel", s.cancelChat)
	api.Get("/status", s.getStatus)
	api.Get("/greeting", s.getGreeting)

	api.Get("/ledger", s.getLedger)
	api.Get("/deposits", s.getDeposits)
	api.Post("/deposits", s.postDeposit)
	api.Delete("/deposits/last", s.deleteLastDeposit)
	api.Delete("/deposits/:id", s.deleteDeposit)

	api.Get("/messages/today", s.getTodayMessages)
	api.Post("/messages/:id/feedback", s.postFeedback)
	api.Get("/feedback", s.getFeedback)

	api.Get("/settings", s.getSettings)
	api.Put("/settings", s.putSettings)
	api.Post("/onboarding", s.postOnboarding)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.app.ShutdownWithContext(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, orchestrator.ErrBlankInput),
		errors.Is(err, storage.ErrInvalidAmount),
		errors.Is(err, settings.ErrInvalidDebt),
		errors.Is(err, settings.ErrInvalidDeadline),
		errors.Is(err, settings.ErrInvalidMode),
		errors.Is(err, settings.ErrInvalidTime):
		code = fiber.StatusBadRequest
	case errors.Is(err, orchestrator.ErrThrottled):
		code = fiber.StatusTooManyRequests
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Path(), "method", c.Method(), "error", err)
		return c.Status(code).JSON(errorResponse{Error: "internal error"})
	}

	return c.Status(code).JSON(errorResponse{Error: userMessage(err)})
}

func userMessage(err error) string {
	for _, known := range []error{
		orchestrator.ErrBlankInput,
		orchestrator.ErrThrottled,
		storage.ErrInvalidAmount,
		settings.ErrInvalidDebt,
		settings.ErrInvalidDeadline,
		settings.ErrInvalidMode,
		settings.ErrInvalidTime,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return err.Error()
}
