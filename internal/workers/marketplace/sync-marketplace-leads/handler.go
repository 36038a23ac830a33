// internal/workers/marketplace/sync-marketplace-leads/handler.go
package syncmarketplaceleads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"sales-crm-workers/internal/common/camunda"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/observability"
	"sales-crm-workers/internal/marketplace"
)

const (
	TaskType = "sync-marketplace-leads"
)

type Fetcher interface {
	Fetch(ctx context.Context, start, end time.Time) ([]marketplace.Enquiry, error)
}

type Importer interface {
	Import(ctx context.Context, rows []marketplace.Enquiry, now time.Time) (marketplace.Summary, error)
}

// Cursors remembers the end of the last successful sync. store.Cache is the
// production implementation.
type Cursors interface {
	Cursor(ctx context.Context, name string) (time.Time, bool, error)
	SetCursor(ctx context.Context, name string, t time.Time) error
}

type Handler struct {
	config   *Config
	fetcher  Fetcher
	importer Importer
	cursors  Cursors
	jobs     *camunda.Reporter
	logger   logger.Logger
	now      func() time.Time
}

// NewHandler builds the handler. cursors may be nil, in which case every
// run covers the default window.
func NewHandler(config *Config, fetcher Fetcher, importer Importer, cursors Cursors, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		fetcher:  fetcher,
		importer: importer,
		cursors:  cursors,
		jobs:     camunda.NewReporter(TaskType, scoped),
		logger:   scoped,
		now:      time.Now,
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
	now := h.now().UTC()
	start, end, pinned, err := h.window(ctx, input, now)
	if err != nil {
		return nil, err
	}
	start, end, caughtUp := h.clamp(start, end)
	if !caughtUp {
		h.logger.Warn("sync window exceeds the maximum, syncing the oldest part first", map[string]interface{}{
			"windowStart": start.Format(time.RFC3339),
			"windowEnd":   end.Format(time.RFC3339),
		})
	}

	ctx, span := observability.Start(ctx, TaskType,
		attribute.String("windowStart", start.Format(time.RFC3339)),
		attribute.String("windowEnd", end.Format(time.RFC3339)),
	)
	defer func() { observability.EndSpan(span, err) }()

	rows, err := h.fetcher.Fetch(ctx, start, end)
	if err != nil {
		return nil, apperrors.NewMarketplaceFetchFailedError(err)
	}

	summary, err := h.importer.Import(ctx, rows, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("fetched", summary.Fetched), attribute.Int("created", summary.Created))

	output := &Output{
		Summary:     summary,
		WindowStart: start.Format(time.RFC3339),
		WindowEnd:   end.Format(time.RFC3339),
		CaughtUp:    caughtUp,
	}

	// A pinned window is a backfill and leaves the cursor alone.
	if !pinned && h.cursors != nil {
		if err := h.cursors.SetCursor(ctx, h.config.CursorName, end); err != nil {
			h.logger.Warn("failed to advance sync cursor", map[string]interface{}{"error": err})
		} else {
			output.CursorAdvanced = true
		}
	}

	h.logger.Info("marketplace leads synced", map[string]interface{}{
		"fetched":       summary.Fetched,
		"created":       summary.Created,
		"existing":      summary.Existing,
		"skipped":       summary.Skipped,
		"messagesAdded": summary.MessagesAdded,
	})
	return output, nil
}

func (h *Handler) window(ctx context.Context, input *Input, now time.Time) (time.Time, time.Time, bool, error) {
	end := now
	if input.EndTime != "" {
		t, err := time.Parse(time.RFC3339, input.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, false, apperrors.NewInvalidInputError(fmt.Sprintf("endTime: %v", err))
		}
		end = t.UTC()
	}

	if input.StartTime != "" {
		start, err := time.Parse(time.RFC3339, input.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, false, apperrors.NewInvalidInputError(fmt.Sprintf("startTime: %v", err))
		}
		if !start.Before(end) {
			return time.Time{}, time.Time{}, false, apperrors.NewInvalidInputError("startTime must be before endTime")
		}
		return start.UTC(), end, true, nil
	}

	start := end.Add(-h.config.Window)
	if h.cursors != nil {
		cursor, ok, err := h.cursors.Cursor(ctx, h.config.CursorName)
		switch {
		case err != nil:
			h.logger.Warn("sync cursor unavailable, using default window", map[string]interface{}{"error": err})
		case ok && cursor.Before(end):
			start = cursor
		}
	}
	return start, end, input.EndTime != "", nil
}

// clamp shortens an oversized window from the end so the cursor only moves
// past what was fetched. The bool is false when the window was shortened.
func (h *Handler) clamp(start, end time.Time) (time.Time, time.Time, bool) {
	if h.config.MaxWindow > 0 && end.Sub(start) > h.config.MaxWindow {
		return start, start.Add(h.config.MaxWindow), false
	}
	return start, end, true
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
