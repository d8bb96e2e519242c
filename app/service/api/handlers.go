package api

import (
	"debtslayer/app/service/ledger"
	"debtslayer/app/service/personality"
	"debtslayer/app/service/storage"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

type chatRequest struct {
	Text string `json:"text"`
}

func (s *Server) postChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	id, err := s.orch.Submit(req.Text)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"turn_id": id})
}

func (s *Server) cancelChat(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"cancelled": s.orch.Cancel()})
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"orchestrator": s.orch.Status(),
		"daily_usage":  s.settings.DailyUsage(),
	})
}

func (s *Server) getGreeting(c *fiber.Ctx) error {
	snap := s.debtSvc.Snapshot()

	return c.JSON(fiber.Map{
		"text": personality.Greeting(s.picker, snap.State, snap.TodayDeposit, snap.HasDeposits()),
	})
}

func (s *Server) getLedger(c *fiber.Ctx) error {
	snap := s.debtSvc.Snapshot()

	return c.JSON(fiber.Map{
		"state":         snap.State,
		"today_deposit": snap.TodayDeposit,
		"deadline":      snap.Settings.Deadline,
	})
}

func (s *Server) getDeposits(c *fiber.Ctx) error {
	deposits := s.debtSvc.Snapshot().Deposits
	if deposits == nil {
		deposits = []ledger.Deposit{}
	}

	return c.JSON(fiber.Map{"deposits": deposits})
}

type depositRequest struct {
	Amount int64  `json:"amount"`
	Source string `json:"source"`
}

func (s *Server) postDeposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Source == "" {
		req.Source = "Manual"
	}

	d, err := s.debtSvc.RecordDeposit(c.UserContext(), req.Amount, req.Source)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(d)
}

func (s *Server) deleteLastDeposit(c *fiber.Ctx) error {
	d, ok, err := s.debtSvc.DeleteLastDeposit(c.UserContext())
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no deposits")
	}

	return c.JSON(d)
}

func (s *Server) deleteDeposit(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid deposit id")
	}

	ok, err := s.debtSvc.DeleteDeposit(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "deposit not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getTodayMessages(c *fiber.Ctx) error {
	messages, err := s.store.Messages(c.UserContext(), time.Now().Format(storage.SessionDateLayout))
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []storage.Message{}
	}

	return c.JSON(fiber.Map{"messages": messages})
}

type feedbackRequest struct {
	Positive bool `json:"positive"`
}

func (s *Server) postFeedback(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message id")
	}

	var req feedbackRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	ctx := c.UserContext()

	msg, ok, err := s.store.Message(ctx, int64(id))
	if err != nil {
		return err
	}
	if !ok || msg.FromUser {
		return fiber.NewError(fiber.StatusNotFound, "assistant message not found")
	}

	userText, err := s.store.PrecedingUserMessage(ctx, msg.ID)
	if err != nil {
		return err
	}

	snap := s.debtSvc.Snapshot()
	snapshot, err := json.Marshal(fiber.Map{
		"state":         snap.State,
		"today_deposit": snap.TodayDeposit,
		"personality":   snap.Settings.Personality,
		"status":        s.orch.Status(),
	})
	if err != nil {
		return err
	}

	feedbackID, err := s.store.SaveFeedback(ctx, storage.Feedback{
		MessageID:        msg.ID,
		UserMessage:      userText,
		AssistantMessage: msg.Text,
		Positive:         req.Positive,
		Context:          string(snapshot),
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": feedbackID})
}

func (s *Server) getFeedback(c *fiber.Ctx) error {
	positive, negative, err := s.store.FeedbackCounts(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"positive": positive, "negative": negative})
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	return c.JSON(s.settings.Snapshot())
}

type settingsRequest struct {
	TotalDebt      *int64  `json:"total_debt"`
	Deadline       *string `json:"deadline"`
	ResetDeadline  bool    `json:"reset_deadline"`
	Personality    *string `json:"personality"`
	ReminderHour   *int    `json:"reminder_hour"`
	ReminderMinute *int    `json:"reminder_minute"`
}

func (s *Server) putSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	ctx := c.UserContext()

	if req.TotalDebt != nil {
		if err := s.settings.SetTotalDebt(ctx, *req.TotalDebt); err != nil {
			return err
		}
	}

	switch {
	case req.ResetDeadline:
		if err := s.settings.ResetDeadline(ctx); err != nil {
			return err
		}
	case req.Deadline != nil:
		if err := s.settings.SetDeadline(ctx, *req.Deadline); err != nil {
			return err
		}
	}

	if req.Personality != nil {
		if err := s.settings.SetPersonality(ctx, *req.Personality); err != nil {
			return err
		}
	}

	if req.ReminderHour != nil || req.ReminderMinute != nil {
		current := s.settings.Snapshot()
		hour, minute := current.ReminderHour, current.ReminderMinute
		if req.ReminderHour != nil {
			hour = *req.ReminderHour
		}
		if req.ReminderMinute != nil {
			minute = *req.ReminderMinute
		}
		if err := s.settings.SetReminderTime(ctx, hour, minute); err != nil {
			return err
		}
	}

	return c.JSON(s.settings.Snapshot())
}

type onboardingRequest struct {
	TotalDebt int64  `json:"total_debt"`
	Deadline  string `json:"deadline"`
}

func (s *Server) postOnboarding(c *fiber.Ctx) error {
	var req onboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if err := s.settings.CompleteOnboarding(c.UserContext(), req.TotalDebt, req.Deadline); err != nil {
		return err
	}

	snap := s.debtSvc.Snapshot()

	return c.JSON(fiber.Map{
		"settings": snap.Settings,
		"state":    snap.State,
		"greeting": personality.Greeting(s.picker, snap.State, snap.TodayDeposit, snap.HasDeposits()),
	})
}
