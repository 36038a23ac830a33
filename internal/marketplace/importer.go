package marketplace

import (
	"context"
	"strings"
	"time"

	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/metrics"
	"sales-crm-workers/internal/common/validation"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

const (
	Source      = "IndiaMART API"
	defaultName = "IndiaMART Lead"
)

// Summary counts what one import did.
type Summary struct {
	Fetched       int      `json:"fetched"`
	Created       int      `json:"created"`
	Existing      int      `json:"existing"`
	Skipped       int      `json:"skipped"`
	MessagesAdded int      `json:"messagesAdded"`
	LeadIDs       []string `json:"leadIds,omitempty"`
}

// Importer turns enquiries into leads. A contact is matched on the last ten
// digits of its phone, and an enquiry text is added to a conversation at
// most once.
type Importer struct {
	leads  store.Leads
	logger logger.Logger
}

func NewImporter(leads store.Leads, log logger.Logger) *Importer {
	return &Importer{leads: leads, logger: log}
}

func (im *Importer) Import(ctx context.Context, rows []Enquiry, now time.Time) (Summary, error) {
	sum := Summary{Fetched: len(rows)}

	for _, row := range rows {
		phone := strings.TrimSpace(row.Phone())
		if !validation.ValidatePhone(phone) {
			sum.Skipped++
			metrics.MarketplaceLeadsImported.WithLabelValues("skipped").Inc()
			im.logger.Warn("enquiry without usable phone", map[string]interface{}{"queryId": row.QueryID})
			continue
		}

		received := row.ReceivedAt(now)
		lead, created, err := im.findOrCreate(ctx, row, phone, received)
		if err != nil {
			return sum, err
		}
		if created {
			sum.Created++
			metrics.MarketplaceLeadsImported.WithLabelValues("created").Inc()
		} else {
			sum.Existing++
			metrics.MarketplaceLeadsImported.WithLabelValues("existing").Inc()
		}
		sum.LeadIDs = append(sum.LeadIDs, lead.ID)

		text := strings.TrimSpace(row.Message)
		if text == "" || hasMessage(lead, text) {
			continue
		}
		msg := &models.Message{
			Sender:    models.SenderClient,
			Content:   text,
			Type:      models.MessageText,
			Timestamp: received,
		}
		if err := im.leads.AppendMessage(ctx, lead.ID, msg); err != nil {
			return sum, err
		}
		sum.MessagesAdded++
	}
	return sum, nil
}

func (im *Importer) findOrCreate(ctx context.Context, row Enquiry, phone string, received time.Time) (*models.Lead, bool, error) {
	lead, err := im.leads.FindByPhoneKey(ctx, validation.PhoneKey(phone))
	if err == nil {
		return lead, false, nil
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound) {
		return nil, false, err
	}

	name := strings.TrimSpace(row.SenderName)
	if name == "" {
		name = defaultName
	}
	lead = &models.Lead{
		Name:            name,
		Phone:           phone,
		Email:           row.SenderEmail,
		Source:          Source,
		Status:          models.StatusNew,
		ProductInterest: row.ProductName,
		City:            row.City(),
		ReceivedAt:      received,
		Tags:            []string{"indiamart"},
	}
	if err := im.leads.CreateLead(ctx, lead); err != nil {
		return nil, false, err
	}
	return lead, true, nil
}

func hasMessage(lead *models.Lead, content string) bool {
	for _, m := range lead.Messages {
		if strings.TrimSpace(m.Content) == content {
			return true
		}
	}
	return false
}
