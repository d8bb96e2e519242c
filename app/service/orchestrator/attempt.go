package orchestrator

import (
	"context"
	"debtslayer/app/client/model"
	"debtslayer/app/service/ratelimit"
	"errors"
	"log/slog"
	"time"
)

type attemptResultKind int

const (
	resultOK attemptResultKind = iota
	resultCancelled
	resultTimeout
	resultTransient
	resultRateLimited
)

type attemptResult struct {
	result attemptResultKind
	kind   ratelimit.Kind
	cause  ratelimit.Cause
	reply  *model.Reply
}

// attempt performs one bounded call to the model in slot.
func (o *Orchestrator) attempt(t *turn, slot Slot, system, prompt string) attemptResult {
	client := o.clients[slot]
	window := o.windows[slot]

	if kind, ok := window.Allow(); !ok {
		modelCallsTotal.WithLabelValues(slot.String(), "preempted").Inc()
		slog.Info("Quota exhausted locally, skipping call", "turn", t.id, "model", slot, "kind", kind)
		o.noteRateLimit(slot, kind, nil, false)
		return attemptResult{result: resultRateLimited, kind: kind}
	}

	// the request in flight does not count towards the daily quota when classifying its own failure
	exhausted := window.DailyExhausted()
	window.Record()
	o.recordRequest(t, slot)
	o.setPhase(t, WaitingResponse, slot)

	callCtx, cancel := context.WithTimeout(t.ctx, o.opts.RequestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := client.Generate(callCtx, system, prompt)
	modelCallDuration.WithLabelValues(slot.String()).Observe(time.Since(start).Seconds())

	switch {
	case t.cancelled():
		modelCallsTotal.WithLabelValues(slot.String(), "cancelled").Inc()
		return attemptResult{result: resultCancelled}
	case err == nil:
		modelCallsTotal.WithLabelValues(slot.String(), "ok").Inc()
		return attemptResult{result: resultOK, reply: reply}
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		modelCallsTotal.WithLabelValues(slot.String(), "timeout").Inc()
		slog.Warn("Model call timed out", "turn", t.id, "model", slot, "timeout", o.opts.RequestTimeout)
		return attemptResult{result: resultTimeout}
	}

	kind := ratelimit.Classify(err, exhausted)
	if !kind.IsRateLimit() {
		cause := ratelimit.Diagnose(err)
		modelCallsTotal.WithLabelValues(slot.String(), "transient").Inc()
		slog.Warn("Model call failed", "turn", t.id, "model", slot, "cause", cause, "error", err)
		return attemptResult{result: resultTransient, cause: cause}
	}

	modelCallsTotal.WithLabelValues(slot.String(), kind.String()).Inc()
	o.noteRateLimit(slot, kind, err, true)

	return attemptResult{result: resultRateLimited, kind: kind}
}

func (o *Orchestrator) noteRateLimit(slot Slot, kind ratelimit.Kind, err error, block bool) {
	now := o.now()
	retry := ratelimit.RetryAfter(err, kind, now)
	info := &RateLimitInfo{
		Kind:       kind,
		RetryAfter: retry,
		Until:      now.Add(retry),
	}

	if block {
		o.windows[slot].Block(kind, info.Until)
	}

	o.mu.Lock()
	o.rateLimits[slot] = info
	o.mu.Unlock()
}

func (o *Orchestrator) recordRequest(t *turn, slot Slot) {
	if o.deps.Usage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), ioTimeout)
	defer cancel()

	if err := o.deps.Usage.RecordRequest(ctx, slot.String()); err != nil {
		slog.Warn("Failed to record request", "model", slot, "error", err)
	}
}
