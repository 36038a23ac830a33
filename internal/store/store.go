// Package store persists leads and their conversations.
package store

import (
	"context"

	"sales-crm-workers/internal/models"
)

// ListFilter narrows ListLeads. Zero values mean no filter.
type ListFilter struct {
	Status models.LeadStatus
	Source string
	Limit  int
}

// Leads is the read/write contract the workers depend on.
type Leads interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	FindByPhoneKey(ctx context.Context, phoneKey string) (*models.Lead, error)
	CreateLead(ctx context.Context, lead *models.Lead) error
	AppendMessage(ctx context.Context, leadID string, msg *models.Message) error
	UpdateLeadStatus(ctx context.Context, id string, status models.LeadStatus) error
	ListLeads(ctx context.Context, filter ListFilter) ([]models.Lead, error)
}
