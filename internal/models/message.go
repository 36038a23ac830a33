// internal/models/message.go
package models

import "time"

type Sender string

const (
	SenderClient   Sender = "client"
	SenderSalesRep Sender = "salesrep"
	SenderSystem   Sender = "system"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageEstimate MessageType = "estimate"
	MessageAlert    MessageType = "alert"
)

// Message is one entry in a lead's conversation. Messages are append-only.
type Message struct {
	ID        string      `json:"id"`
	LeadID    string      `json:"leadId,omitempty"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	MediaURL  string      `json:"mediaUrl,omitempty"`
}

// Empty reports a message with neither text nor media.
func (m Message) Empty() bool {
	return len(m.Content) == 0 && m.MediaURL == ""
}
