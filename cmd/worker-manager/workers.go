// cmd/worker-manager/workers.go
package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"sales-crm-workers/internal/common/camunda"
	"sales-crm-workers/internal/common/config"
	apperrors "sales-crm-workers/internal/common/errors"
	"sales-crm-workers/internal/marketplace"
	"sales-crm-workers/pkg/registry"

	// Lead Workers (5)
	ad "sales-crm-workers/internal/workers/lead/agent-decide"
	dr "sales-crm-workers/internal/workers/lead/draft-reply"
	el "sales-crm-workers/internal/workers/lead/evaluate-lead"
	im "sales-crm-workers/internal/workers/lead/ingest-message"
	uls "sales-crm-workers/internal/workers/lead/update-lead-status"

	// Messaging Workers (2)
	ab "sales-crm-workers/internal/workers/messaging/alert-boss"
	dsr "sales-crm-workers/internal/workers/messaging/dispatch-reply"

	// Marketplace Workers (1)
	sml "sales-crm-workers/internal/workers/marketplace/sync-marketplace-leads"
)

// builders maps each task type to its handler constructor.
func builders(d *deps) map[string]func() worker.JobHandler {
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		if ms := config.GetWorkerConfig(d.cfg, taskType).Timeout; ms > 0 {
			return config.GetDuration(ms)
		}
		return fallback
	}

	return map[string]func() worker.JobHandler{
		im.TaskType: func() worker.JobHandler {
			c := im.LoadConfig()
			c.Timeout = timeout(im.TaskType, c.Timeout)
			return im.NewHandler(c, d.leads, d.dispatcher, d.log).Handle
		},
		el.TaskType: func() worker.JobHandler {
			c := el.LoadConfig()
			c.Timeout = timeout(el.TaskType, c.Timeout)
			return el.NewHandler(c, d.leads, d.pipeline, d.log).Handle
		},
		dr.TaskType: func() worker.JobHandler {
			c := dr.LoadConfig()
			c.Timeout = timeout(dr.TaskType, c.Timeout)
			return dr.NewHandler(c, d.leads, d.log).Handle
		},
		ad.TaskType: func() worker.JobHandler {
			c := ad.LoadConfig()
			c.Timeout = timeout(ad.TaskType, c.Timeout)
			return ad.NewHandler(c, d.leads, d.pipeline, d.log).Handle
		},
		uls.TaskType: func() worker.JobHandler {
			c := uls.LoadConfig()
			c.Timeout = timeout(uls.TaskType, c.Timeout)
			return uls.NewHandler(c, d.leads, d.log).Handle
		},
		dsr.TaskType: func() worker.JobHandler {
			c := dsr.LoadConfig()
			c.Timeout = timeout(dsr.TaskType, c.Timeout)
			c.MaxDelay = config.GetDuration(d.cfg.Agent.Typing.Max)
			return dsr.NewHandler(c, d.leads, d.dispatcher, d.log).Handle
		},
		ab.TaskType: func() worker.JobHandler {
			c := ab.FromAlerts(d.cfg.Alerts)
			c.Timeout = timeout(ab.TaskType, c.Timeout)
			return ab.NewHandler(c, d.leads, d.aws.SES, d.aws.SNS, d.log).Handle
		},
		sml.TaskType: func() worker.JobHandler {
			c := sml.FromMarketplace(d.cfg.Integrations.Marketplace)
			c.Timeout = timeout(sml.TaskType, c.Timeout)
			return sml.NewHandler(c, d.market, marketplace.NewImporter(d.leads, d.log), d.cache, d.log).Handle
		},
	}
}

func enabledTaskTypes(cfg *config.Config) []string {
	var out []string
	for name, w := range cfg.Workers {
		if w.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func startWorkers(client zbc.Client, reg *registry.ActivityRegistry, d *deps, log *zap.Logger) int {
	build := builders(d)
	started := 0
	for _, taskType := range enabledTaskTypes(d.cfg) {
		newHandler, ok := build[taskType]
		if !ok {
			log.Fatal("no handler for enabled worker", zap.String("taskType", taskType))
		}
		activity, _ := reg.Find(taskType)
		handler := validated(activity, newHandler(), camunda.NewReporter(taskType, d.log.WithFields(map[string]interface{}{"taskType": taskType})))
		camunda.StartWorker(client, taskType, config.GetWorkerConfig(d.cfg, taskType), handler, log)
		started++
	}
	return started
}

// validated rejects jobs whose variables do not match the activity's input
// schema before they reach the handler.
func validated(activity registry.Activity, next worker.JobHandler, jobs *camunda.Reporter) worker.JobHandler {
	if len(activity.InputSchema) == 0 {
		return next
	}
	return func(client worker.JobClient, job entities.Job) {
		result, err := activity.ValidateInput(job.Variables)
		if err != nil {
			jobs.Fail(client, job, time.Now(), apperrors.NewInvalidInputError(err.Error()))
			return
		}
		if !result.Valid {
			jobs.Fail(client, job, time.Now(), apperrors.NewInvalidInputError(
				fmt.Sprintf("%s: %s", activity.TaskType, strings.Join(result.GetErrorMessages(), "; "))))
			return
		}
		next(client, job)
	}
}
