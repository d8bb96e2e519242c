package orchestrator

import (
	"context"
	"debtslayer/app/client/model"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	errCancelledByUser = errors.New("cancelled by user")
	errSuperseded      = errors.New("superseded by a newer message")
)

// turn is the single in-flight request. committed is guarded by Orchestrator.mu;
// once set the turn can no longer be cancelled.
type turn struct {
	id        string
	text      string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	committed bool
	// set before done is closed, nil when the turn was cancelled
	reply *Reply
}

func newTurn(parent context.Context, text string, now time.Time) *turn {
	ctx, cancel := context.WithCancelCause(parent)

	return &turn{
		id:        uuid.NewString(),
		text:      text,
		startedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (t *turn) cancelled() bool {
	return t.ctx.Err() != nil
}

// outcome is what execute decided; nothing in it has been applied yet.
type outcome struct {
	label     string
	phase     Phase
	reply     string
	succeeded bool
	local     bool
	slot      Slot
	action    Action
	usage     model.Usage
	degrade   bool
}
