// internal/workers/lead/ingest-message/handler.go
package ingestmessage

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

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/validation"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "ingest-message"
)

var (
	ErrEmptyMessage = errors.New("EMPTY_MESSAGE")
	ErrInvalidPhone = errors.New("INVALID_PHONE")
)

// Superseder discards drafts still waiting to be sent to a lead.
type Superseder interface {
	Supersede(leadID string) bool
}

type Handler struct {
	config     *Config
	leads      store.Leads
	superseder Superseder
	now        func() time.Time
	jobs       *camunda.Reporter
	logger     logger.Logger
}

func NewHandler(config *Config, leads store.Leads, superseder Superseder, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		leads:      leads,
		superseder: superseder,
		now:        time.Now,
		jobs:       camunda.NewReporter(TaskType, scoped),
		logger:     scoped,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Body) == "" && input.MediaURL == "" {
		return nil, fmt.Errorf("%w: %w", ErrEmptyMessage, apperrors.NewEmptyMessageError(input.Phone))
	}
	if !validation.ValidatePhone(input.Phone) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPhone, apperrors.NewInvalidInputError("phone needs at least 10 digits"))
	}

	sentAt, err := h.timestamp(input.Timestamp)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("timestamp: %v", err))
	}

	lead, created, err := h.findOrCreate(ctx, input)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderClient,
		Content:   input.Body,
		Timestamp: sentAt,
		Type:      models.MessageText,
		MediaURL:  input.MediaURL,
	}
	if input.FromMe {
		msg.Sender = models.SenderSalesRep
	}
	if input.MediaURL != "" {
		msg.Type = models.MessageImage
	}
	if err := h.leads.AppendMessage(ctx, lead.ID, msg); err != nil {
		return nil, err
	}

	output := &Output{
		LeadID:      lead.ID,
		MessageID:   msg.ID,
		Sender:      string(msg.Sender),
		LeadCreated: created,
		Status:      string(lead.Status),
	}

	// Messages typed on the phone are recorded but do not reopen the lead.
	if msg.Sender == models.SenderClient {
		if lead.Status != models.StatusFollowUp {
			if err := h.leads.UpdateLeadStatus(ctx, lead.ID, models.StatusFollowUp); err != nil {
				return nil, err
			}
		}
		output.Status = string(models.StatusFollowUp)
		if h.superseder != nil {
			output.DraftSuperseded = h.superseder.Supersede(lead.ID)
		}
	}

	h.logger.Info("message ingested", map[string]interface{}{
		"leadId":          lead.ID,
		"sender":          msg.Sender,
		"leadCreated":     created,
		"draftSuperseded": output.DraftSuperseded,
	})
	return output, nil
}

func (h *Handler) findOrCreate(ctx context.Context, input *Input) (*models.Lead, bool, error) {
	lead, err := h.leads.FindByPhoneKey(ctx, validation.PhoneKey(input.Phone))
	if err == nil {
		return lead, false, nil
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = h.config.DefaultName
	}
	lead = &models.Lead{
		Name:   name,
		Phone:  input.Phone,
		Source: h.config.Source,
		Status: models.StatusNew,
	}
	if err := h.leads.CreateLead(ctx, lead); err != nil {
		return nil, false, err
	}
	return lead, true, nil
}

func (h *Handler) timestamp(raw string) (time.Time, error) {
	if raw == "" {
		return h.now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
