// internal/workers/lead/update-lead-status/handler.go
package updateleadstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "update-lead-status"
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
	if input.LeadID == "" {
		return nil, apperrors.NewInvalidInputError("leadId is required")
	}
	status := models.LeadStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if !status.Valid() {
		return nil, apperrors.NewInvalidStatusError(input.Status)
	}

	lead, err := h.leads.GetLead(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	output := &Output{
		LeadID:         lead.ID,
		Status:         string(status),
		PreviousStatus: string(lead.Status),
	}
	if lead.Status == status {
		return output, nil
	}

	if err := h.leads.UpdateLeadStatus(ctx, lead.ID, status); err != nil {
		return nil, err
	}
	output.Changed = true

	h.logger.Info("lead status updated", map[string]interface{}{
		"leadId": lead.ID,
		"from":   lead.Status,
		"to":     status,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
