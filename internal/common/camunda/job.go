package camunda

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/common/logger"
	"sales-crm-workers/internal/common/metrics"
)

// commandTimeout bounds the complete/fail round trip, independent of the
// job's own deadline.
const commandTimeout = 10 * time.Second

// JobRecorder receives job outcomes in addition to the Prometheus
// collectors. observability.Observability satisfies it.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type recorderBox struct{ r JobRecorder }

var recorder atomic.Value

// UseRecorder installs r for every Reporter. Call it before workers start.
func UseRecorder(r JobRecorder) {
	recorder.Store(recorderBox{r: r})
}

func record(taskType string, started time.Time, status string) {
	box, ok := recorder.Load().(recorderBox)
	if !ok || box.r == nil {
		return
	}
	ctx := context.Background()
	box.r.RecordJobProcessed(ctx, taskType, status)
	box.r.RecordJobDuration(ctx, taskType, time.Since(started), status)
}

// Reporter completes or fails jobs for one task type and records the
// outcome in the job metrics.
type Reporter struct {
	taskType string
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewReporter(taskType string, log logger.Logger) *Reporter {
	return &Reporter{
		taskType: taskType,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

// Complete sends output as the job variables.
func (r *Reporter) Complete(client worker.JobClient, job entities.Job, started time.Time, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		r.Fail(client, job, started, apperrors.NewInternalError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
	metrics.ObserveJob(r.taskType, started, "")
	record(r.taskType, started, "completed")
}

// Fail hands err to the error handler, which either fails the job with
// retries or throws a BPMN error.
func (r *Reporter) Fail(client worker.JobClient, job entities.Job, started time.Time, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	r.errors.HandleJobError(ctx, client, job, err)
	metrics.ObserveJob(r.taskType, started, ErrorCode(err))
	record(r.taskType, started, "failed")
}

// ErrorCode is the metric label for err.
func ErrorCode(err error) string {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return string(apperrors.ErrCodeInternal)
}
