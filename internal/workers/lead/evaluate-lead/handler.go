// internal/workers/lead/evaluate-lead/handler.go
package evaluatelead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/judge"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "evaluate-lead"
)

var (
	ErrMissingLeadID = errors.New("MISSING_LEAD_ID")
)

// Judge produces guidance for a lead. judge.Pipeline is the production
// implementation.
type Judge interface {
	Evaluate(ctx context.Context, lead *models.Lead, last models.Message) (intelligence.Guidance, judge.Outcome)
}

type Handler struct {
	config *Config
	leads  store.Leads
	judge  Judge
	jobs   *camunda.Reporter
	logger logger.Logger
}

func NewHandler(config *Config, leads store.Leads, j Judge, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		leads:  leads,
		judge:  j,
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

func (h *Handler) execute(ctx context.Context, input *Input) (_ *Output, err error) {
	if input.LeadID == "" {
		return nil, fmt.Errorf("%w: %w", ErrMissingLeadID, apperrors.NewInvalidInputError("leadId is required"))
	}

	ctx, span := observability.Start(ctx, TaskType, attribute.String("leadId", input.LeadID))
	defer func() { observability.EndSpan(span, err) }()

	lead, err := h.leads.GetLead(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}

	last := latestMessage(lead, input.Message)
	guidance, outcome := h.judge.Evaluate(ctx, lead, last)

	span.SetAttributes(
		attribute.String("stage", string(guidance.PipelineStage)),
		attribute.String("branch", string(guidance.BranchKind)),
		attribute.String("judgeSource", string(outcome.Source)),
	)

	output := &Output{
		LeadID:      lead.ID,
		Guidance:    guidance,
		Draft:       intelligence.Draft(lead, guidance.PipelineStage, guidance.CustomerType, guidance.ClimateStrategy),
		JudgeSource: string(outcome.Source),
	}
	if outcome.Source != judge.SourceExternal {
		output.FallbackReason = string(outcome.Reason)
	}

	h.logger.Info("lead evaluated", map[string]interface{}{
		"leadId":      lead.ID,
		"score":       guidance.SeriousBuyerScore,
		"leadScore":   guidance.LeadScore,
		"stage":       guidance.PipelineStage,
		"branch":      guidance.BranchKind,
		"judgeSource": outcome.Source,
	})
	return output, nil
}

// latestMessage prefers the message carried by the job, then the newest
// client message on file.
func latestMessage(lead *models.Lead, given *models.Message) models.Message {
	if given != nil && !given.Empty() {
		return *given
	}
	if msg, ok := lead.LastClientMessage(); ok {
		return msg
	}
	return models.Message{}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
