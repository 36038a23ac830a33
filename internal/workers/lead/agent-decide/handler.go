// internal/workers/lead/agent-decide/handler.go
package agentdecide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"sales-crm-workers/internal/agent"
	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/judge"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "agent-decide"
)

var (
	ErrMissingLeadID = errors.New("MISSING_LEAD_ID")
)

// Decider turns an inbound message into an agent decision.
type Decider interface {
	Decide(ctx context.Context, lead *models.Lead, content string) (agent.Decision, judge.Outcome)
}

type Handler struct {
	config  *Config
	leads   store.Leads
	decider Decider
	jobs    *camunda.Reporter
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, leads store.Leads, decider Decider, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		leads:   leads,
		decider: decider,
		jobs:    camunda.NewReporter(TaskType, scoped),
		logger:  scoped,
		now:     time.Now,
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

	content := input.Content
	if content == "" {
		if msg, ok := lead.LastClientMessage(); ok {
			content = msg.Content
		}
	}

	decision, outcome := h.decider.Decide(ctx, lead, content)
	span.SetAttributes(
		attribute.String("action", string(decision.Action)),
		attribute.String("judgeSource", string(outcome.Source)),
	)

	output := &Output{
		LeadID:      lead.ID,
		LeadName:    lead.Name,
		LeadPhone:   lead.Phone,
		Decision:    decision,
		State:       string(decision.Action.State()),
		JudgeSource: string(outcome.Source),
		DecidedAt:   h.now().UTC().Format(time.RFC3339Nano),
	}
	if outcome.Source != judge.SourceExternal {
		output.FallbackReason = string(outcome.Reason)
	}
	if decision.Action == agent.ActionAlertBoss {
		output.BossAlert = agent.FormatBossAlert(lead, decision)
	}

	h.logger.Info("agent decided", map[string]interface{}{
		"leadId":      lead.ID,
		"action":      decision.Action,
		"intent":      decision.Intent,
		"escalation":  decision.Escalation,
		"judgeSource": outcome.Source,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
