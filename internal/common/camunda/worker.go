// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobWorkerOpener is the part of zbc.Client that opens job workers.
type JobWorkerOpener interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

var _ JobWorkerOpener = zbc.Client(nil)

// JobRecorder receives one observation per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration)
}

// Workers tracks the job workers opened for one client so they can be
// closed together on shutdown.
type Workers struct {
	client   JobWorkerOpener
	recorder JobRecorder
	logger   logger.Logger
	open     map[string]worker.JobWorker
}

// NewWorkers builds a registry. recorder may be nil.
func NewWorkers(client JobWorkerOpener, recorder JobRecorder, log logger.Logger) *Workers {
	return &Workers{
		client:   client,
		recorder: recorder,
		logger:   log,
		open:     map[string]worker.JobWorker{},
	}
}

func (w *Workers) instrument(taskType string, handler worker.JobHandler) worker.JobHandler {
	if w.recorder == nil {
		return handler
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler(client, job)
		ctx := context.Background()
		w.recorder.RecordJobProcessed(ctx, taskType, "handled")
		w.recorder.RecordJobDuration(ctx, taskType, time.Since(start))
	}
}

// Start opens a job worker for taskType unless the config disables it.
// It reports whether a worker was opened.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	timeout := time.Duration(wcfg.Timeout) * time.Millisecond
	step := w.client.NewJobWorker().
		JobType(taskType).
		Handler(w.instrument(taskType, handler)).
		Name(taskType + "-worker").
		MaxJobsActive(wcfg.MaxJobsActive)
	if timeout > 0 {
		step = step.Timeout(timeout)
	}
	w.open[taskType] = step.Open()

	w.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

func (w *Workers) Len() int {
	return len(w.open)
}

// Close stops every worker and waits for in-flight jobs.
func (w *Workers) Close() {
	for taskType, jw := range w.open {
		w.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jw.Close()
		jw.AwaitClose()
	}
	w.open = map[string]worker.JobWorker{}
}
