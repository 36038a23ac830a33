// internal/models/lead.go
package models

import (
	"strings"
	"time"
)

type LeadStatus string

const (
	StatusNew      LeadStatus = "new"
	StatusFollowUp LeadStatus = "follow_up"
	StatusClosed   LeadStatus = "closed"
	StatusLost     LeadStatus = "lost"
	StatusArchived LeadStatus = "archived"
	StatusDead     LeadStatus = "dead"
)

// Valid reports whether s is one of the known lifecycle states.
func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusFollowUp, StatusClosed, StatusLost, StatusArchived, StatusDead:
		return true
	}
	return false
}

// Terminal statuses take the lead out of active selling.
func (s LeadStatus) Terminal() bool {
	switch s {
	case StatusClosed, StatusLost, StatusArchived, StatusDead:
		return true
	}
	return false
}

type ProjectType string

const (
	ProjectVilla      ProjectType = "villa"
	ProjectRenovation ProjectType = "renovation"
	ProjectBoundary   ProjectType = "boundary"
	ProjectCommercial ProjectType = "commercial"
)

type QualificationStatus string

const (
	QualificationPending   QualificationStatus = "pending"
	QualificationPartial   QualificationStatus = "partially_qualified"
	QualificationQualified QualificationStatus = "qualified"
)

type Responsiveness string

const (
	ResponsivenessFast   Responsiveness = "Fast"
	ResponsivenessNormal Responsiveness = "Normal"
	ResponsivenessSlow   Responsiveness = "Slow"
)

type Seriousness string

const (
	SeriousnessHigh   Seriousness = "High"
	SeriousnessMedium Seriousness = "Medium"
	SeriousnessLow    Seriousness = "Low"
)

// ClientProfile is the rep's read on how the buyer behaves.
type ClientProfile struct {
	Responsiveness Responsiveness `json:"responsiveness,omitempty"`
	Tone           string         `json:"tone,omitempty"`
	Seriousness    Seriousness    `json:"seriousness,omitempty"`
}

type SampleStatus string

const (
	SamplePending    SampleStatus = "pending"
	SampleDispatched SampleStatus = "dispatched"
	SampleDelivered  SampleStatus = "delivered"
)

type SampleRequest struct {
	Status      SampleStatus `json:"status"`
	Items       []string     `json:"items,omitempty"`
	RequestedAt *time.Time   `json:"requestedAt,omitempty"`
}

// Lead is a prospect with its full conversation. Messages are kept in
// chronological order.
type Lead struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Phone               string              `json:"phone"`
	Email               string              `json:"email,omitempty"`
	Source              string              `json:"source"`
	Status              LeadStatus          `json:"status"`
	ProductInterest     string              `json:"productInterest,omitempty"`
	City                string              `json:"city,omitempty"`
	SiteLocation        string              `json:"siteLocation,omitempty"`
	ProjectType         ProjectType         `json:"projectType,omitempty"`
	EstimatedArea       float64             `json:"estimatedArea,omitempty"`
	StartDate           *time.Time          `json:"startDate,omitempty"`
	QualificationStatus QualificationStatus `json:"qualificationStatus,omitempty"`
	LastActive          *time.Time          `json:"lastActive,omitempty"`
	ReceivedAt          time.Time           `json:"receivedAt"`
	DealValue           float64             `json:"dealValue,omitempty"`
	Tags                []string            `json:"tags,omitempty"`
	Sample              *SampleRequest      `json:"sampleRequest,omitempty"`
	Profile             *ClientProfile      `json:"clientProfile,omitempty"`
	Messages            []Message           `json:"messages,omitempty"`
}

// Responsiveness returns the recorded responsiveness, or "" when unknown.
func (l *Lead) Responsiveness() Responsiveness {
	if l.Profile == nil {
		return ""
	}
	return l.Profile.Responsiveness
}

func (l *Lead) Seriousness() Seriousness {
	if l.Profile == nil {
		return ""
	}
	return l.Profile.Seriousness
}

// LastClientMessage returns the newest message sent by the client.
func (l *Lead) LastClientMessage() (Message, bool) {
	for i := len(l.Messages) - 1; i >= 0; i-- {
		if l.Messages[i].Sender == SenderClient {
			return l.Messages[i], true
		}
	}
	return Message{}, false
}

// FirstName is the first word of the lead's name, or a polite fallback.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Sir/Ma'am"
	}
	return fields[0]
}
