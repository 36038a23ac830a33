// internal/workers/lead/draft-reply/handler.go
package draftreply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "draft-reply"
)

var (
	ErrNothingToAnswer = errors.New("NOTHING_TO_ANSWER")
)

type Handler struct {
	config *Config
	leads  store.Leads
	jobs   *camunda.Reporter
	logger logger.Logger
}

func NewHandler(config *Config, leads store.Leads, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		leads:  leads,
		jobs:   camunda.NewReporter(TaskType, scoped),
		logger: scoped,
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
	var lead *models.Lead
	if input.LeadID != "" {
		l, err := h.leads.GetLead(ctx, input.LeadID)
		if err != nil {
			return nil, err
		}
		lead = l
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && lead != nil {
		if msg, ok := lead.LastClientMessage(); ok {
			content = msg.Content
		}
	}
	if content == "" {
		return nil, fmt.Errorf("%w: %w", ErrNothingToAnswer, apperrors.NewInvalidInputError("content or a lead with client messages is required"))
	}

	customer, err := parseCustomerType(input.CustomerType)
	if err != nil {
		return nil, err
	}
	if customer == "" {
		customer = intelligence.DetectCustomerType(lead, content)
	}

	reply := intelligence.DraftReply(lead, content, customer)

	h.logger.Info("reply drafted", map[string]interface{}{
		"leadId":       input.LeadID,
		"topic":        reply.Topic,
		"customerType": customer,
	})
	return &Output{
		Reply:        reply.Reply,
		Topic:        reply.Topic,
		Confidence:   reply.Confidence,
		CustomerType: string(customer),
	}, nil
}

func parseCustomerType(raw string) (intelligence.CustomerType, error) {
	if raw == "" {
		return "", nil
	}
	for _, ct := range []intelligence.CustomerType{
		intelligence.CustomerArchitect,
		intelligence.CustomerBuilder,
		intelligence.CustomerContractor,
		intelligence.CustomerHomeowner,
		intelligence.CustomerUnknown,
	} {
		if strings.EqualFold(raw, string(ct)) {
			return ct, nil
		}
	}
	return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown customer type %q", raw))
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
