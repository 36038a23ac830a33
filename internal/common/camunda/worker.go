// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"sales-crm-workers/internal/common/config"
	"sales-crm-workers/internal/common/metrics"
)

// StartWorker opens a job worker for taskType and tracks in-flight jobs.
func StartWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler worker.JobHandler, log *zap.Logger) worker.JobWorker {
	tracked := func(c worker.JobClient, job entities.Job) {
		done := metrics.TrackActive(taskType)
		defer done()
		handler(c, job)
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(tracked).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Timeout)).
		Name("sales-crm-" + taskType).
		PollInterval(time.Second).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", cfg.MaxJobsActive),
		zap.Int("timeoutMs", cfg.Timeout),
	)
	return w
}
