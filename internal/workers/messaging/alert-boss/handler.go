// internal/workers/messaging/alert-boss/handler.go
package alertboss

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"sales-crm-workers/internal/agent"
	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	TaskType = "alert-boss"
)

var (
	ErrMissingLeadID = errors.New("MISSING_LEAD_ID")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	leads     store.Leads
	sesClient SESService
	snsClient SNSService
	jobs      *camunda.Reporter
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(config *Config, leads store.Leads, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		leads:     leads,
		sesClient: sesClient,
		snsClient: snsClient,
		jobs:      camunda.NewReporter(TaskType, scoped),
		logger:    scoped,
		now:       time.Now,
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

	text := strings.TrimSpace(input.BossAlert)
	if text == "" {
		text = agent.FormatBossAlert(lead, agent.Decision{
			Action:         agent.ActionAlertBoss,
			ThoughtProcess: input.ThoughtProcess,
			Escalation:     agent.EscalationReason(input.EscalationReason),
		})
	}

	sentAt := h.now().UTC()
	output := &Output{
		AlertID: uuid.New().String(),
		Status:  StatusDisabled,
		SentAt:  sentAt.Format(time.RFC3339),
	}

	var failures []error
	if h.config.SMSEnabled && h.config.BossPhone != "" {
		if err := h.sendSMS(ctx, h.config.BossPhone, text); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{"error": err, "leadId": lead.ID})
			failures = append(failures, apperrors.NewAlertSendFailedError("sms", err))
		} else {
			output.SMSSent = true
		}
	}
	if h.config.EmailEnabled && h.config.BossEmail != "" {
		subject := fmt.Sprintf("Boss alert: %s needs %s", lead.Name, h.config.BossName)
		if err := h.sendEmail(ctx, h.config.BossEmail, subject, text); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{"error": err, "leadId": lead.ID})
			failures = append(failures, apperrors.NewAlertSendFailedError("email", err))
		} else {
			output.EmailSent = true
		}
	}

	delivered := output.SMSSent || output.EmailSent
	switch {
	case !delivered && len(failures) > 0:
		return nil, failures[0]
	case delivered && len(failures) > 0:
		output.Status = StatusPartial
	case delivered:
		output.Status = StatusSent
	}
	span.SetAttributes(attribute.String("status", output.Status))

	// The conversation keeps a system note of the hand-over either way.
	note := &models.Message{
		ID:        output.AlertID,
		Sender:    models.SenderSystem,
		Content:   text,
		Timestamp: sentAt,
		Type:      models.MessageAlert,
	}
	if err := h.leads.AppendMessage(ctx, lead.ID, note); err != nil {
		h.logger.Warn("failed to record alert", map[string]interface{}{"error": err, "leadId": lead.ID})
	} else {
		output.Recorded = true
	}

	h.logger.Info("boss alerted", map[string]interface{}{
		"leadId":    lead.ID,
		"alertId":   output.AlertID,
		"status":    output.Status,
		"smsSent":   output.SMSSent,
		"emailSent": output.EmailSent,
	})
	return output, nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
