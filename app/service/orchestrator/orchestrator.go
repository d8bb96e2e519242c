package orchestrator

import (
	"context"
	"debtslayer/app/client/connectivity"
	"debtslayer/app/client/model"
	"debtslayer/app/service/debt"
	"debtslayer/app/service/interpreter"
	"debtslayer/app/service/ledger"
	"debtslayer/app/service/ratelimit"
	"debtslayer/app/service/storage"
	"debtslayer/app/util/broadcast"
	"debtslayer/app/util/money"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/do"
)

const ioTimeout = 10 * time.Second

var _ do.Shutdownable = (*Orchestrator)(nil)

type Ledger interface {
	Snapshot() debt.Snapshot
	RecordDeposit(ctx context.Context, amount int64, source string) (ledger.Deposit, error)
	DeleteLastDeposit(ctx context.Context) (ledger.Deposit, bool, error)
}

type Journal interface {
	AppendTurnLog(ctx context.Context, user, assistant string, succeeded bool) error
	SaveMessage(ctx context.Context, text string, fromUser bool) (int64, error)
}

type Prompter interface {
	SystemPrompt(state ledger.State, todayDeposit int64) string
	TurnPrompt(message, history string) string
}

type UsageSink interface {
	RecordRequest(ctx context.Context, modelName string) error
	RecordTokens(ctx context.Context, usage model.Usage) error
}

type Deps struct {
	Primary         model.Client
	Secondary       model.Client
	PrimaryWindow   *ratelimit.Window
	SecondaryWindow *ratelimit.Window

	Ledger   Ledger
	Journal  Journal
	Prompter Prompter
	Probe    connectivity.Probe
	// optional
	Usage UsageSink
	// turns that seed the prompt history, oldest first
	History []storage.Turn
}

type Options struct {
	Cooldown       time.Duration
	RequestTimeout time.Duration
	FallbackPause  time.Duration
	HistorySize    int
}

type Reply struct {
	TurnID    string      `json:"turn_id"`
	Text      string      `json:"text"`
	Model     string      `json:"model,omitempty"`
	Offline   bool        `json:"offline"`
	Succeeded bool        `json:"succeeded"`
	Usage     model.Usage `json:"usage"`
	MessageID int64       `json:"message_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type RateLimitInfo struct {
	Kind       ratelimit.Kind `json:"kind"`
	RetryAfter time.Duration  `json:"retry_after"`
	Until      time.Time      `json:"until"`
}

type ModelStatus struct {
	Window    ratelimit.Usage `json:"window"`
	RateLimit *RateLimitInfo  `json:"rate_limit,omitempty"`
}

type Status struct {
	Busy                bool                 `json:"busy"`
	Phase               Phase                `json:"phase"`
	TurnID              string               `json:"turn_id,omitempty"`
	Model               Slot                 `json:"model"`
	Preferred           Slot                 `json:"preferred"`
	Degraded            bool                 `json:"degraded"`
	LastReply           *Reply               `json:"last_reply,omitempty"`
	LastDepositRecorded *ledger.Deposit      `json:"last_deposit_recorded,omitempty"`
	SessionUsage        model.Usage          `json:"session_usage"`
	Models              map[Slot]ModelStatus `json:"models"`
}

// Orchestrator turns one user message into exactly one reply. At most one turn is in flight;
// a newer Submit cancels the previous turn.
type Orchestrator struct {
	deps    Deps
	opts    Options
	clients [2]model.Client
	windows [2]*ratelimit.Window
	now     func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu            sync.Mutex
	active        *turn
	phase         Phase
	activeSlot    Slot
	lastCompleted time.Time
	preferred     Slot
	degraded      bool
	lastReply     *Reply
	lastDeposit   *ledger.Deposit
	sessionUsage  model.Usage
	rateLimits    [2]*RateLimitInfo
	history       *history

	updates *broadcast.Broadcaster[Status]
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	ctx, stop := context.WithCancel(context.Background())

	if deps.Probe == nil {
		deps.Probe = connectivity.Static(true)
	}
	if deps.PrimaryWindow == nil {
		deps.PrimaryWindow = ratelimit.NewWindow(0, 0)
	}
	if deps.SecondaryWindow == nil {
		deps.SecondaryWindow = ratelimit.NewWindow(0, 0)
	}

	return &Orchestrator{
		deps:    deps,
		opts:    opts,
		clients: [2]model.Client{deps.Primary, deps.Secondary},
		windows: [2]*ratelimit.Window{deps.PrimaryWindow, deps.SecondaryWindow},
		now:     time.Now,
		baseCtx: ctx,
		stop:    stop,
		history: newHistory(opts.HistorySize, deps.History),
		updates: broadcast.New[Status]("orchestrator", 16),
	}
}

// Submit starts a turn and returns its id without waiting for the reply.
func (o *Orchestrator) Submit(text string) (string, error) {
	t, err := o.submit(text)
	if err != nil {
		return "", err
	}

	return t.id, nil
}

// Ask submits text and waits for its reply. ErrCancelled means the turn was cancelled or superseded.
func (o *Orchestrator) Ask(ctx context.Context, text string) (*Reply, error) {
	t, err := o.submit(text)
	if err != nil {
		return nil, err
	}

	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if t.reply == nil {
		return nil, ErrCancelled
	}

	return t.reply, nil
}

func (o *Orchestrator) submit(text string) (*turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrBlankInput
	}

	o.mu.Lock()

	now := o.now()
	if !o.lastCompleted.IsZero() && now.Sub(o.lastCompleted) < o.opts.Cooldown {
		o.mu.Unlock()
		slog.Debug("Message throttled", "since_last", now.Sub(o.lastCompleted))
		return nil, ErrThrottled
	}

	prev := o.active
	if prev != nil && !prev.committed {
		prev.cancel(errSuperseded)
	}

	t := newTurn(o.baseCtx, text, now)
	o.active = t
	o.phase = Connecting
	o.activeSlot = o.preferred
	status := o.statusLocked()

	o.mu.Unlock()

	o.updates.Publish(status)

	o.wg.Add(1)
	go o.run(t, prev)

	return t, nil
}

// Cancel aborts the in-flight turn unless it is already applying its result.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil || o.active.committed {
		return false
	}

	o.active.cancel(errCancelledByUser)

	return true
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.statusLocked()
}

// Subscribe delivers a Status after every phase change and every reply.
func (o *Orchestrator) Subscribe() (<-chan Status, func()) {
	return o.updates.Subscribe()
}

// Wait blocks until no turn is running.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) Shutdown() error {
	o.stop()
	o.wg.Wait()
	o.updates.Close()

	return nil
}

func (o *Orchestrator) run(t *turn, prev *turn) {
	defer o.wg.Done()
	defer close(t.done)

	if prev != nil {
		<-prev.done
	}

	out, ok := o.execute(t)
	if !ok || !o.commit(t) {
		o.finishCancelled(t)
		return
	}

	o.apply(t, out)
}

func (o *Orchestrator) commit(t *turn) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t.cancelled() {
		return false
	}
	t.committed = true

	return true
}

// execute talks to the models. It returns false when the turn was cancelled.
func (o *Orchestrator) execute(t *turn) (outcome, bool) {
	snap := o.deps.Ledger.Snapshot()

	if !o.deps.Probe.IsNetworkReachable(t.ctx) {
		if t.cancelled() {
			return outcome{}, false
		}
		slog.Info("Network unreachable, answering locally", "turn", t.id)
		return o.local(t, snap, "offline"), true
	}

	o.mu.Lock()
	first := o.preferred
	degraded := o.degraded
	hist := o.history.format()
	o.mu.Unlock()

	if degraded && !o.windowOpen(Primary) && !o.windowOpen(Secondary) {
		slog.Info("Both models still limited, answering locally", "turn", t.id)
		return o.local(t, snap, "degraded"), true
	}

	system := o.deps.Prompter.SystemPrompt(snap.State, snap.TodayDeposit)
	prompt := o.deps.Prompter.TurnPrompt(t.text, hist)

	res := o.attempt(t, first, system, prompt)
	if out, done, ok := o.settle(res, first); done {
		return out, ok
	}

	fallbacksTotal.Inc()
	second := first.other()
	slog.Warn("Model rate limited, trying the other one",
		"turn", t.id,
		"model", first,
		"kind", res.kind,
		"fallback", second)

	o.setPhase(t, FallbackTrying, first)
	if !o.pause(t) {
		return outcome{}, false
	}
	o.setPhase(t, FallbackConnecting, second)

	res = o.attempt(t, second, system, prompt)
	if out, done, ok := o.settle(res, second); done {
		return out, ok
	}

	slog.Warn("Both models rate limited, answering locally", "turn", t.id, "kind", res.kind)
	o.setPhase(t, ErrorBothLimit, second)

	out := o.local(t, snap, "both_limit")
	out.phase = ErrorBothLimit
	out.degrade = true

	return out, true
}

// settle maps an attempt to an outcome; done is false only for a rate limit.
func (o *Orchestrator) settle(res attemptResult, slot Slot) (out outcome, done bool, ok bool) {
	switch res.result {
	case resultOK:
		visible, action := ParseAction(res.reply.Text)
		if visible == "" {
			visible = msgEmptyReply
		}
		return outcome{
			label:     "success",
			phase:     Success,
			reply:     visible,
			succeeded: true,
			slot:      slot,
			action:    action,
			usage:     res.reply.Usage,
		}, true, true
	case resultCancelled:
		return outcome{}, true, false
	case resultTimeout:
		return outcome{label: "timeout", phase: TimedOut, reply: msgTimedOut, slot: slot}, true, true
	case resultTransient:
		return outcome{label: "transient", phase: Idle, reply: failureMessage(res.cause), slot: slot}, true, true
	default:
		return outcome{}, false, true
	}
}

func (o *Orchestrator) local(t *turn, snap debt.Snapshot, label string) outcome {
	text, effect := interpreter.Respond(t.text, snap.State, snap.TodayDeposit)

	out := outcome{
		label: label,
		phase: Idle,
		reply: text,
		local: true,
	}
	if effect.Kind == interpreter.EffectRecordDeposit {
		out.action = Action{Kind: ActionDeposit, Amount: effect.Amount}
	}

	return out
}

func (o *Orchestrator) windowOpen(slot Slot) bool {
	_, ok := o.windows[slot].Allow()
	return ok
}

func (o *Orchestrator) pause(t *turn) bool {
	if o.opts.FallbackPause <= 0 {
		return !t.cancelled()
	}

	timer := time.NewTimer(o.opts.FallbackPause)
	defer timer.Stop()

	select {
	case <-t.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// apply runs after commit: side effects, persistence and the final status. Nothing here can be cancelled.
func (o *Orchestrator) apply(t *turn, out outcome) {
	ioCtx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), ioTimeout)
	defer cancel()

	reply := out.reply
	source := SourceRemote
	if out.local {
		source = SourceLocal
	}

	var recorded *ledger.Deposit

	switch out.action.Kind {
	case ActionDeposit:
		d, err := o.deps.Ledger.RecordDeposit(ioCtx, out.action.Amount, source)
		if err != nil {
			slog.Error("Failed to record deposit", "turn", t.id, "amount", out.action.Amount, "error", err)
			reply += "\n" + msgSaveFailed
		} else {
			recorded = &d
		}
	case ActionDeleteLast:
		d, ok, err := o.deps.Ledger.DeleteLastDeposit(ioCtx)
		switch {
		case err != nil:
			slog.Error("Failed to delete last deposit", "turn", t.id, "error", err)
			reply += "\n" + msgSaveFailed
		case !ok:
			reply += "\n" + msgNoDeposit
		default:
			reply += "\n" + fmt.Sprintf(msgDeleted, money.Format(d.Amount))
		}
	default:
	}

	messageID := o.persist(ioCtx, t, reply, out.succeeded)

	if out.succeeded {
		tokensTotal.WithLabelValues(out.slot.String(), "prompt").Add(float64(out.usage.PromptTokens))
		tokensTotal.WithLabelValues(out.slot.String(), "candidate").Add(float64(out.usage.CandidateTokens))

		if o.deps.Usage != nil {
			if err := o.deps.Usage.RecordTokens(ioCtx, out.usage); err != nil {
				slog.Warn("Failed to record token usage", "error", err)
			}
		}
	}

	o.mu.Lock()

	now := o.now()
	o.lastCompleted = now
	if out.succeeded {
		o.preferred = out.slot
		o.degraded = false
		o.rateLimits[out.slot] = nil
	}
	if out.degrade {
		o.degraded = true
	}
	o.sessionUsage = o.sessionUsage.Add(out.usage)
	o.history.add(t.text, reply, now)

	t.reply = &Reply{
		TurnID:    t.id,
		Text:      reply,
		Model:     replyModel(out),
		Offline:   out.local,
		Succeeded: out.succeeded,
		Usage:     out.usage,
		MessageID: messageID,
		Timestamp: now,
	}
	o.lastReply = t.reply
	if recorded != nil {
		o.lastDeposit = recorded
	}

	var statuses []Status
	if o.active == t {
		if out.phase != Idle {
			o.phase = out.phase
			statuses = append(statuses, o.statusLocked())
		}
		o.active = nil
		o.phase = Idle
	}
	statuses = append(statuses, o.statusLocked())

	o.mu.Unlock()

	for _, s := range statuses {
		o.updates.Publish(s)
	}

	turnsTotal.WithLabelValues(out.label).Inc()

	slog.Info("Turn completed",
		"turn", t.id,
		"outcome", out.label,
		"model", replyModel(out),
		"duration", time.Since(t.startedAt))
}

// persist stores the exchange and returns the id of the reply message. Failures are only logged.
func (o *Orchestrator) persist(ctx context.Context, t *turn, reply string, succeeded bool) int64 {
	if _, err := o.deps.Journal.SaveMessage(ctx, t.text, true); err != nil {
		slog.Error("Failed to save user message", "turn", t.id, "error", err)
	}

	messageID, err := o.deps.Journal.SaveMessage(ctx, reply, false)
	if err != nil {
		slog.Error("Failed to save reply message", "turn", t.id, "error", err)
	}

	if err = o.deps.Journal.AppendTurnLog(ctx, t.text, reply, succeeded); err != nil {
		slog.Error("Failed to append turn log", "turn", t.id, "error", err)
	}

	return messageID
}

func (o *Orchestrator) finishCancelled(t *turn) {
	o.mu.Lock()

	var statuses []Status
	if o.active == t {
		o.phase = Cancelled
		statuses = append(statuses, o.statusLocked())
		o.active = nil
		o.phase = Idle
		statuses = append(statuses, o.statusLocked())
	}

	o.mu.Unlock()

	for _, s := range statuses {
		o.updates.Publish(s)
	}

	turnsTotal.WithLabelValues("cancelled").Inc()

	slog.Info("Turn cancelled", "turn", t.id, "cause", context.Cause(t.ctx))
}

func (o *Orchestrator) setPhase(t *turn, phase Phase, slot Slot) {
	o.mu.Lock()
	if o.active != t {
		o.mu.Unlock()
		return
	}
	o.phase = phase
	o.activeSlot = slot
	status := o.statusLocked()
	o.mu.Unlock()

	o.updates.Publish(status)
}

func (o *Orchestrator) statusLocked() Status {
	now := o.now()

	s := Status{
		Busy:                o.active != nil,
		Phase:               o.phase,
		Model:               o.activeSlot,
		Preferred:           o.preferred,
		Degraded:            o.degraded,
		LastReply:           o.lastReply,
		LastDepositRecorded: o.lastDeposit,
		SessionUsage:        o.sessionUsage,
		Models:              make(map[Slot]ModelStatus, 2),
	}
	if o.active != nil {
		s.TurnID = o.active.id
	}

	for _, slot := range []Slot{Primary, Secondary} {
		ms := ModelStatus{Window: o.windows[slot].Usage()}
		if info := o.rateLimits[slot]; info != nil && info.Until.After(now) {
			copied := *info
			ms.RateLimit = &copied
		}
		s.Models[slot] = ms
	}

	return s
}

func replyModel(out outcome) string {
	switch {
	case out.local:
		return "local"
	case out.succeeded:
		return out.slot.String()
	default:
		return ""
	}
}
