// internal/workers/application/create-application-record/handler.go
package createapplicationrecord

import (
	"context"
	"time"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/scoring"
	"agritrust-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-application-record"
)

type Handler struct {
	config       *Config
	repo         store.Repository
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, repo store.Repository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		repo:         repo,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	req := scoring.Request{
		FarmSize:      input.FarmSize,
		SoilScore:     input.SoilScore,
		Rainfall:      input.Rainfall,
		PreviousLoans: input.PreviousLoans,
		YieldAmount:   input.YieldAmount,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Insert checks score/category consistency and assigns id + timestamp.
	rec, err := h.repo.Insert(ctx, input.fields(), input.OfficerID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId": rec.ID,
		"riskCategory":  rec.RiskCategory,
		"trustScore":    rec.TrustScore,
		"officerId":     rec.OfficerID,
	})

	return &Output{
		ApplicationID: rec.ID,
		OfficerID:     rec.OfficerID,
		CreatedAt:     rec.Timestamp.UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(ctx)
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	} else {
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey": job.Key,
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
