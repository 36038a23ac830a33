// internal/workers/marketplace/sync-marketplace-leads/models.go
package syncmarketplaceleads

import "sales-crm-workers/internal/marketplace"

// Input optionally pins the window. Without it the window starts at the
// last successful sync.
type Input struct {
	StartTime string `json:"startTime,omitempty"` // RFC3339
	EndTime   string `json:"endTime,omitempty"`   // RFC3339
}

type Output struct {
	marketplace.Summary
	WindowStart    string `json:"windowStart"`
	WindowEnd      string `json:"windowEnd"`
	CursorAdvanced bool   `json:"cursorAdvanced"`
	CaughtUp       bool   `json:"caughtUp"` // false when the window was cut at the maximum span
}
