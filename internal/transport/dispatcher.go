package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/metrics"

	"github.com/google/uuid"
)

var errSuperseded = errors.New("superseded by a newer inbound message")

// Draft is a reply waiting out its typing delay. Guard, when set, runs once
// the delay is over; an error from it cancels the send and is returned
// as is.
type Draft struct {
	ID      string
	LeadID  string
	Message Message
	Delay   time.Duration
	Guard   func(ctx context.Context) error
}

type pending struct {
	id     string
	cancel context.CancelCauseFunc
}

// Dispatcher holds at most one pending draft per lead. A draft is sent
// after its delay unless the lead writes again first.
type Dispatcher struct {
	sender Sender
	logger logger.Logger

	mu      sync.Mutex
	pending map[string]pending
}

func NewDispatcher(sender Sender, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		logger:  log,
		pending: make(map[string]pending),
	}
}

// Dispatch waits out draft.Delay and sends. It returns a DRAFT_SUPERSEDED
// error when Supersede or a newer draft for the same lead cancels it, and
// a DELIVERY_FAILED error when no transport accepts the message.
func (d *Dispatcher) Dispatch(ctx context.Context, draft Draft) (Receipt, error) {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}

	waitCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	d.register(draft, cancel)
	defer d.release(draft)

	if draft.Delay > 0 {
		timer := time.NewTimer(draft.Delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-waitCtx.Done():
			if errors.Is(context.Cause(waitCtx), errSuperseded) {
				return Receipt{}, apperrors.NewDraftSupersededError(draft.LeadID)
			}
			return Receipt{}, ctx.Err()
		}
	}

	// a supersede that lands after the timer fired still wins
	if errors.Is(context.Cause(waitCtx), errSuperseded) {
		return Receipt{}, apperrors.NewDraftSupersededError(draft.LeadID)
	}

	if draft.Guard != nil {
		if err := draft.Guard(ctx); err != nil {
			return Receipt{}, err
		}
	}

	d.release(draft)
	receipt, err := d.sender.Send(ctx, draft.Message)
	if err != nil {
		return Receipt{}, apperrors.NewDeliveryFailedError(draft.Message.To, err)
	}
	return receipt, nil
}

// Supersede discards the pending draft for leadID, if any.
func (d *Dispatcher) Supersede(leadID string) bool {
	d.mu.Lock()
	p, ok := d.pending[leadID]
	if ok {
		delete(d.pending, leadID)
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	p.cancel(errSuperseded)
	metrics.DraftsDiscarded.Inc()
	d.logger.Info("draft discarded", map[string]interface{}{"leadId": leadID, "draftId": p.id})
	return true
}

// Pending reports whether leadID has a draft waiting.
func (d *Dispatcher) Pending(leadID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[leadID]
	return ok
}

func (d *Dispatcher) register(draft Draft, cancel context.CancelCauseFunc) {
	if draft.LeadID == "" {
		return
	}
	d.mu.Lock()
	prev, ok := d.pending[draft.LeadID]
	d.pending[draft.LeadID] = pending{id: draft.ID, cancel: cancel}
	d.mu.Unlock()

	if ok {
		prev.cancel(errSuperseded)
		metrics.DraftsDiscarded.Inc()
	}
}

func (d *Dispatcher) release(draft Draft) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[draft.LeadID]; ok && p.id == draft.ID {
		delete(d.pending, draft.LeadID)
	}
}
