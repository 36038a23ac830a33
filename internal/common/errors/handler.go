// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler turns worker errors into failed or thrown Zeebe jobs.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobOutcome is the decision taken for a failed job.
type JobOutcome struct {
	Throw   bool
	Retries int32
	Error   *BPMNError
}

// Resolve decides between failing with retries and throwing a BPMN error.
func Resolve(job entities.Job, err error) (JobOutcome, *StandardError) {
	stdErr := normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	if bpmnErr.Retries == 0 || job.Retries <= 0 {
		return JobOutcome{Throw: true, Error: bpmnErr}, stdErr
	}

	// job.Retries counts what is left; never hand back more than that
	retries := int32(bpmnErr.Retries)
	if job.Retries < retries {
		retries = job.Retries
	}
	return JobOutcome{Retries: retries - 1, Error: bpmnErr}, stdErr
}

// HandleJobError reports err on the job.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	outcome, stdErr := Resolve(job, err)
	h.logError(job, stdErr, outcome)

	if outcome.Throw {
		h.throwBPMNError(ctx, client, job, outcome.Error)
		return
	}
	h.failJob(ctx, client, job, outcome)
}

func normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, outcome JobOutcome) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(outcome.Retries).
		ErrorMessage(outcome.Error.Message)

	if vars, ok := encodeVariables(outcome.Error); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := encodeVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func encodeVariables(bpmnErr *BPMNError) (string, bool) {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, outcome JobOutcome) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":        job.Key,
		"jobType":       job.Type,
		"errorCode":     string(stdErr.Code),
		"bpmnErrorCode": outcome.Error.Code,
		"details":       stdErr.Details,
		"thrown":        outcome.Throw,
		"retriesLeft":   outcome.Retries,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"workflowKey":   job.ProcessInstanceKey,
	})
}
