// internal/workers/lead/agent-decide/handler_test.go
package agentdecide

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-crm-workers/internal/agent"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/intelligence"
	"sales-crm-workers/internal/judge"
	"sales-crm-workers/internal/models"
	"sales-crm-workers/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type stubBackend struct {
	text  string
	calls int
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.text, nil
}

func newPipeline(t *testing.T, backend judge.Backend) *judge.Pipeline {
	t.Helper()
	ag := agent.New(agent.DefaultParams(),
		agent.NewKeywordCatalog([]models.Product{
			{ID: "p-brick", Name: "Wirecut Brick", Category: "brick", Cost: 100, Coverage: 5.33},
		}),
		agent.WithJitter(func(time.Duration) time.Duration { return 0 }))
	evaluator := intelligence.NewEvaluator(intelligence.DefaultParams())
	return judge.NewPipeline(evaluator, ag, backend, time.Second, logger.NewTestLogger(t))
}

func testLeads(status models.LeadStatus, lastMessage string) *store.MemoryStore {
	sent := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	return store.NewMemoryStore(models.Lead{
		ID:         "lead-1",
		Name:       "Ravi Patil",
		Phone:      "919800000001",
		Status:     status,
		ReceivedAt: sent,
		Messages: []models.Message{
			{ID: "m-1", Sender: models.SenderClient, Content: lastMessage, Timestamp: sent, Type: models.MessageText},
		},
	})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Heuristic(t *testing.T) {
	tests := []struct {
		name       string
		status     models.LeadStatus
		content    string
		wantAction agent.Action
		wantState  string
		wantAlert  bool
	}{
		{
			name:       "casual reply",
			status:     models.StatusFollowUp,
			content:    "hello",
			wantAction: agent.ActionReply,
			wantState:  "Reply",
		},
		{
			name:       "complaint escalates",
			status:     models.StatusFollowUp,
			content:    "your rate is bad",
			wantAction: agent.ActionAlertBoss,
			wantState:  "AlertBoss",
			wantAlert:  true,
		},
		{
			name:       "closed lead stays silent",
			status:     models.StatusClosed,
			content:    "hello",
			wantAction: agent.ActionWait,
			wantState:  "Wait",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), testLeads(tt.status, tt.content), newPipeline(t, nil), logger.NewTestLogger(t))
			decided := time.Date(2026, 3, 9, 10, 0, 1, 250000000, time.UTC)
			h.now = func() time.Time { return decided }

			output, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})

			require.NoError(t, err)
			assert.Equal(t, "2026-03-09T10:00:01.25Z", output.DecidedAt)
			assert.Equal(t, tt.wantAction, output.Action)
			assert.Equal(t, tt.wantState, output.State)
			assert.Equal(t, "heuristic", output.JudgeSource)
			assert.Equal(t, "disabled", output.FallbackReason)
			assert.Equal(t, "919800000001", output.LeadPhone)
			if tt.wantAlert {
				assert.Contains(t, output.BossAlert, "BOSS ALERT")
				assert.Contains(t, output.BossAlert, "Ravi Patil (919800000001)")
				assert.Empty(t, output.Response)
			} else {
				assert.Empty(t, output.BossAlert)
			}
		})
	}
}

func TestHandler_Execute_ExternalReply(t *testing.T) {
	backend := &stubBackend{text: `{"action":"REPLY","response":"Namaste Ravi! Which site are these for?","thoughtProcess":"Warm opener","detectedLanguage":"English"}`}
	h := NewHandler(LoadConfig(), testLeads(models.StatusFollowUp, "hello"), newPipeline(t, backend), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "external", output.JudgeSource)
	assert.Empty(t, output.FallbackReason)
	assert.Equal(t, "Namaste Ravi! Which site are these for?", output.Response)
	assert.Greater(t, output.TypingDelayMs, int64(0))
}

func TestHandler_Execute_EscalationIsFinal(t *testing.T) {
	backend := &stubBackend{text: `{"action":"REPLY","response":"Sorry to hear that!"}`}
	h := NewHandler(LoadConfig(), testLeads(models.StatusFollowUp, "hello"), newPipeline(t, backend), logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-1", Content: "your rate is bad"})

	require.NoError(t, err)
	assert.Equal(t, 0, backend.calls)
	assert.Equal(t, agent.ActionAlertBoss, output.Action)
	assert.Equal(t, "locked", output.FallbackReason)
	assert.NotEmpty(t, output.BossAlert)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	h := NewHandler(LoadConfig(), testLeads(models.StatusNew, "hi"), newPipeline(t, nil), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.Is(err, ErrMissingLeadID))

	_, err = h.Execute(context.Background(), &Input{LeadID: "lead-404"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLeadNotFound))
}
