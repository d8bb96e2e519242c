package mcpserver

import (
	"context"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/interpreter"
	"debtslayer/app/service/ledger"
	"debtslayer/app/service/orchestrator"
	"debtslayer/app/util/money"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

const (
	serverName    = "debtslayer"
	serverVersion = "1.0.0"
	sourceMCP     = "MCP"
	askTimeout    = 2 * time.Minute
	recentLimit   = 5
)

type Ledger interface {
	Snapshot() debt.Snapshot
	RecordDeposit(ctx context.Context, amount int64, source string) (ledger.Deposit, error)
}

type Chat interface {
	Ask(ctx context.Context, text string) (*orchestrator.Reply, error)
}

// Service exposes the ledger and the assistant as MCP tools over stdio.
type Service struct {
	ledger Ledger
	chat   Chat
	server *server.MCPServer
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*debt.Service](di), do.MustInvoke[*orchestrator.Orchestrator](di)), nil
}

func NewService(ledgerSvc Ledger, chat Chat) *Service {
	s := &Service{
		ledger: ledgerSvc,
		chat:   chat,
		server: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithInstructions("Tracks repayment of a single debt in Indonesian Rupiah and talks to Mai, the debt coach."),
		),
	}

	s.server.AddTool(mcp.NewTool("debt_status",
		mcp.WithDescription("Current debt state: total, paid, remaining, days left, daily target and today's deposits."),
	), s.debtStatus)

	s.server.AddTool(mcp.NewTool("record_deposit",
		mcp.WithDescription("Record a repayment deposit in Rupiah."),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Deposit amount in Rupiah, positive integer")),
		mcp.WithString("source", mcp.Description("Where the deposit came from")),
	), s.recordDeposit)

	s.server.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a chat message to Mai and wait for the reply. Mai may record or delete deposits."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
	), s.sendMessage)

	return s
}

// Serve speaks MCP on the given streams until ctx is done or input ends.
func (s *Service) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("MCP server listening on stdio")

	return server.NewStdioServer(s.server).Listen(ctx, in, out)
}

type statusResult struct {
	debt.Snapshot
	Summary string `json:"summary"`
}

func (s *Service) debtStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.ledger.Snapshot()
	if len(snap.Deposits) > recentLimit {
		snap.Deposits = snap.Deposits[:recentLimit]
	}

	return mcp.NewToolResultJSON(statusResult{
		Snapshot: snap,
		Summary:  interpreter.Summary(snap.State, snap.TodayDeposit),
	})
}

func (s *Service) recordDeposit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amount, err := request.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if amount < 1 || amount != float64(int64(amount)) {
		return mcp.NewToolResultError("amount must be a positive whole number"), nil
	}

	d, err := s.ledger.RecordDeposit(ctx, int64(amount), request.GetString("source", sourceMCP))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to record deposit", err), nil
	}

	snap := s.ledger.Snapshot()

	return mcp.NewToolResultText("Recorded " + money.Format(d.Amount) + ", remaining " +
		money.Format(snap.State.RemainingDebt)), nil
}

func (s *Service) sendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, askTimeout)
	defer cancel()

	reply, err := s.chat.Ask(ctx, text)
	switch {
	case errors.Is(err, orchestrator.ErrThrottled):
		return mcp.NewToolResultError("too many messages, wait a few seconds"), nil
	case errors.Is(err, orchestrator.ErrBlankInput):
		return mcp.NewToolResultError("text is blank"), nil
	case err != nil:
		return mcp.NewToolResultErrorFromErr("message was not answered", err), nil
	}

	return mcp.NewToolResultJSON(reply)
}
