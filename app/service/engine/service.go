package engine

import (
	"bufio"
	"context"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/interpreter"
	"debtslayer/app/service/orchestrator"
	"debtslayer/app/service/personality"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/do"
)

// Service is the line-oriented terminal chat.
type Service struct {
	orch    *orchestrator.Orchestrator
	debtSvc *debt.Service
	picker  personality.Picker

	in  io.Reader
	out io.Writer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*orchestrator.Orchestrator](di),
		do.MustInvoke[*debt.Service](di),
		os.Stdin,
		os.Stdout,
	), nil
}

func NewService(orch *orchestrator.Orchestrator, debtSvc *debt.Service, in io.Reader, out io.Writer) *Service {
	return &Service{
		orch:    orch,
		debtSvc: debtSvc,
		picker:  personality.RandomPicker{},
		in:      in,
		out:     out,
	}
}

// Run reads messages until /quit, end of input or ctx cancellation.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := s.orch.Subscribe()
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("Reading input failed", "error", err)
		}
	}()

	snap := s.debtSvc.Snapshot()
	s.println("Mai: " + personality.Greeting(s.picker, snap.State, snap.TodayDeposit, snap.HasDeposits()))
	s.println("(/stop membatalkan, /status ringkasan, /quit keluar)")

	var lastReply string

	for {
		select {
		case <-ctx.Done():
			return nil
		case status, ok := <-updates:
			if !ok {
				return nil
			}
			lastReply = s.render(status, lastReply)
		case line, ok := <-lines:
			if !ok {
				s.orch.Wait()
				s.drain(updates, lastReply)
				return nil
			}
			if quit := s.handle(strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (s *Service) handle(line string) (quit bool) {
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		s.orch.Cancel()
		return true
	case "/stop":
		if !s.orch.Cancel() {
			s.println("(tidak ada pesan yang sedang diproses)")
		}
		return false
	case "/status":
		snap := s.debtSvc.Snapshot()
		s.println(interpreter.Summary(snap.State, snap.TodayDeposit))
		return false
	}

	if _, err := s.orch.Submit(line); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrThrottled):
			s.println("(tunggu sebentar sebelum mengirim lagi)")
		case errors.Is(err, orchestrator.ErrBlankInput):
		default:
			s.println("(gagal mengirim: " + err.Error() + ")")
		}
	}

	return false
}

// render prints phase changes and new replies, returning the turn id of the last printed reply.
func (s *Service) render(status orchestrator.Status, lastReply string) string {
	switch status.Phase {
	case orchestrator.Connecting:
		s.println("... menghubungi Mai")
	case orchestrator.FallbackTrying:
		s.println("... model sibuk, mencoba model cadangan")
	case orchestrator.ErrorBothLimit:
		s.println("... semua model sedang dibatasi")
	case orchestrator.Cancelled:
		s.println("(dibatalkan)")
	default:
	}

	if status.LastReply == nil || status.LastReply.TurnID == lastReply {
		return lastReply
	}

	s.println("Mai: " + status.LastReply.Text)

	return status.LastReply.TurnID
}

func (s *Service) drain(updates <-chan orchestrator.Status, lastReply string) {
	for {
		select {
		case status, ok := <-updates:
			if !ok {
				return
			}
			lastReply = s.render(status, lastReply)
		default:
			return
		}
	}
}

func (s *Service) println(text string) {
	_, _ = fmt.Fprintln(s.out, text)
}
