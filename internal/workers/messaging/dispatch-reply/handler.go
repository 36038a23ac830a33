// internal/workers/messaging/dispatch-reply/handler.go
package dispatchreply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
	"sales-crm-workers/internal/transport"
)

const (
	TaskType = "dispatch-reply"
)

var (
	ErrMissingLeadID = errors.New("MISSING_LEAD_ID")
	ErrEmptyReply    = errors.New("EMPTY_REPLY")
)

// Dispatcher sends a draft once its typing delay is over.
// transport.Dispatcher is the production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, draft transport.Draft) (transport.Receipt, error)
}

type Handler struct {
	config     *Config
	leads      store.Leads
	dispatcher Dispatcher
	jobs       *camunda.Reporter
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(config *Config, leads store.Leads, dispatcher Dispatcher, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		leads:      leads,
		dispatcher: dispatcher,
		jobs:       camunda.NewReporter(TaskType, scoped),
		logger:     scoped,
		now:        time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	started := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.jobs.Fail(client, job, started, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.jobs.Fail(client, job, started, err)
		return
	}

	h.jobs.Complete(client, job, started, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (_ *Output, err error) {
	if input.LeadID == "" {
		return nil, fmt.Errorf("%w: %w", ErrMissingLeadID, apperrors.NewInvalidInputError("leadId is required"))
	}
	response := strings.TrimSpace(input.Response)
	if response == "" && input.MediaURL == "" {
		return nil, fmt.Errorf("%w: %w", ErrEmptyReply, apperrors.NewInvalidInputError("response or mediaUrl is required"))
	}

	decidedAt := h.now()
	if input.DecidedAt != "" {
		decidedAt, err = time.Parse(time.RFC3339, input.DecidedAt)
		if err != nil {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("decidedAt: %v", err))
		}
	}

	ctx, span := observability.Start(ctx, TaskType, attribute.String("leadId", input.LeadID))
	defer func() { observability.EndSpan(span, err) }()

	lead, err := h.leads.GetLead(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	receipt, err := h.dispatcher.Dispatch(ctx, transport.Draft{
		LeadID:  lead.ID,
		Message: transport.Message{To: lead.Phone, Body: response, MediaURL: input.MediaURL},
		Delay:   h.typingDelay(input.TypingDelayMs),
		Guard:   h.newerClientMessage(lead.ID, decidedAt),
	})
	if apperrors.HasCode(err, apperrors.ErrCodeDraftSuperseded) {
		span.SetAttributes(attribute.String("status", StatusSuperseded))
		h.logger.Info("reply discarded", map[string]interface{}{"leadId": lead.ID})
		return &Output{LeadID: lead.ID, Status: StatusSuperseded}, nil
	}
	if err != nil {
		return nil, err
	}

	sentAt := h.now()
	output := &Output{
		LeadID:             lead.ID,
		Status:             StatusSent,
		Transport:          receipt.Transport,
		TransportMessageID: receipt.MessageID,
		SentAt:             sentAt.UTC().Format(time.RFC3339),
	}
	span.SetAttributes(attribute.String("status", StatusSent), attribute.String("transport", receipt.Transport))

	// The message is already out, so a failed write is logged rather than
	// retried into a second send.
	msgID, err := h.record(ctx, lead, response, input.MediaURL, sentAt)
	if err != nil {
		h.logger.Error("failed to record sent reply", map[string]interface{}{
			"leadId": lead.ID,
			"error":  err.Error(),
		})
		return output, nil
	}
	output.MessageID = msgID
	output.Recorded = true

	h.logger.Info("reply sent", map[string]interface{}{
		"leadId":    lead.ID,
		"transport": receipt.Transport,
		"messageId": msgID,
	})
	return output, nil
}

func (h *Handler) typingDelay(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	delay := time.Duration(ms) * time.Millisecond
	if h.config.MaxDelay > 0 && delay > h.config.MaxDelay {
		return h.config.MaxDelay
	}
	return delay
}

// newerClientMessage cancels the send when the lead has written since the
// reply was decided, including from another worker process.
func (h *Handler) newerClientMessage(leadID string, decidedAt time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		lead, err := h.leads.GetLead(ctx, leadID)
		if err != nil {
			return err
		}
		if last, ok := lead.LastClientMessage(); ok && last.Timestamp.After(decidedAt) {
			return apperrors.NewDraftSupersededError(leadID)
		}
		return nil
	}
}

func (h *Handler) record(ctx context.Context, lead *models.Lead, response, mediaURL string, sentAt time.Time) (string, error) {
	msg := &models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderSalesRep,
		Content:   response,
		Timestamp: sentAt,
		Type:      models.MessageText,
	}
	if mediaURL != "" {
		msg.Type = models.MessageImage
		msg.MediaURL = mediaURL
		msg.Content = strings.TrimSpace("[MEDIA] " + response)
	}
	if err := h.leads.AppendMessage(ctx, lead.ID, msg); err != nil {
		return "", err
	}
	if lead.Status != models.StatusFollowUp && !lead.Status.Terminal() {
		if err := h.leads.UpdateLeadStatus(ctx, lead.ID, models.StatusFollowUp); err != nil {
			return msg.ID, err
		}
	}
	return msg.ID, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
