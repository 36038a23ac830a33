package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/validation"
	"sales-crm-workers/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps leads in process. It follows the same rules as
// PostgresStore and returns deep copies so callers cannot alias its state.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*models.Lead
	order []string
	now   func() time.Time
}

func NewMemoryStore(leads ...models.Lead) *MemoryStore {
	s := &MemoryStore{leads: make(map[string]*models.Lead), now: time.Now}
	for i := range leads {
		l := copyLead(&leads[i])
		s.leads[l.ID] = l
		s.order = append(s.order, l.ID)
	}
	return s
}

func (s *MemoryStore) GetLead(_ context.Context, id string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, apperrors.NewLeadNotFoundError(id)
	}
	return copyLead(l), nil
}

func (s *MemoryStore) FindByPhoneKey(_ context.Context, phoneKey string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if l := s.leads[id]; validation.PhoneKey(l.Phone) == phoneKey {
			return copyLead(l), nil
		}
	}
	return nil, apperrors.NewLeadNotFoundError("phone:" + phoneKey)
}

func (s *MemoryStore) CreateLead(_ context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.ReceivedAt.IsZero() {
		lead.ReceivedAt = s.now().UTC()
	}
	if lead.Status == "" {
		lead.Status = models.StatusNew
	}
	if lead.QualificationStatus == "" {
		lead.QualificationStatus = models.QualificationPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[lead.ID]; exists {
		return apperrors.NewStoreWriteFailedError("CreateLead", errDuplicate(lead.ID))
	}
	s.leads[lead.ID] = copyLead(lead)
	s.order = append(s.order, lead.ID)
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, leadID string, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	msg.LeadID = leadID

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok {
		return apperrors.NewLeadNotFoundError(leadID)
	}

	l.Messages = append(l.Messages, *msg)
	sort.SliceStable(l.Messages, func(i, j int) bool {
		return l.Messages[i].Timestamp.Before(l.Messages[j].Timestamp)
	})
	if l.LastActive == nil || msg.Timestamp.After(*l.LastActive) {
		t := msg.Timestamp
		l.LastActive = &t
	}
	return nil
}

func (s *MemoryStore) UpdateLeadStatus(_ context.Context, id string, status models.LeadStatus) error {
	if !status.Valid() {
		return apperrors.NewInvalidStatusError(string(status))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return apperrors.NewLeadNotFoundError(id)
	}
	l.Status = status
	return nil
}

func (s *MemoryStore) ListLeads(_ context.Context, filter ListFilter) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Lead
	for _, id := range s.order {
		l := s.leads[id]
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Source != "" && l.Source != filter.Source {
			continue
		}
		c := copyLead(l)
		c.Messages = nil
		out = append(out, *c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lastActive(out[i]).After(lastActive(out[j]))
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func lastActive(l models.Lead) time.Time {
	if l.LastActive != nil {
		return *l.LastActive
	}
	return time.Time{}
}

type errDuplicate string

func (e errDuplicate) Error() string { return "duplicate lead id " + string(e) }

func copyLead(l *models.Lead) *models.Lead {
	c := *l
	c.Tags = append([]string(nil), l.Tags...)
	c.Messages = append([]models.Message(nil), l.Messages...)
	if l.LastActive != nil {
		t := *l.LastActive
		c.LastActive = &t
	}
	if l.StartDate != nil {
		t := *l.StartDate
		c.StartDate = &t
	}
	if l.Sample != nil {
		sr := *l.Sample
		sr.Items = append([]string(nil), l.Sample.Items...)
		c.Sample = &sr
	}
	if l.Profile != nil {
		p := *l.Profile
		c.Profile = &p
	}
	return &c
}
