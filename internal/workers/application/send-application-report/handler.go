// internal/workers/application/send-application-report/handler.go
package sendapplicationreport

import (
	"context"
	"fmt"
	"time"

	"agritrust-workers/internal/common/aws"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/models"
	"agritrust-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-application-report"
)

// Mailer is satisfied by *aws.Mailer.
type Mailer interface {
	Send(ctx context.Context, email aws.Email) (string, error)
}

type Handler struct {
	config       *Config
	repo         store.Repository
	mailer       Mailer
	now          func() time.Time
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, repo store.Repository, mailer Mailer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		repo:         repo,
		mailer:       mailer,
		now:          time.Now,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
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
	recipients := input.Recipients
	if len(recipients) == 0 {
		recipients = h.config.DefaultRecipients
	}
	if len(recipients) == 0 {
		return nil, errors.NewApplicationValidationFailedError("no report recipients configured")
	}

	filter, err := models.ParseRiskFilter(input.RiskFilter)
	if err != nil {
		return nil, errors.NewInvalidRiskFilterError(input.RiskFilter)
	}

	stats, err := h.repo.Summary(ctx)
	if err != nil {
		return nil, err
	}
	records, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.RecentLimit
	}
	if len(records) > limit {
		records = records[:limit]
	}

	label := models.RiskAll
	if filter != "" {
		label = string(filter)
	}
	r := &report{
		GeneratedAt: h.now().UTC(),
		Filter:      label,
		Stats:       stats,
		Recent:      records,
	}

	htmlBody, err := r.html()
	if err != nil {
		return nil, errors.NewReportSendFailedError(fmt.Errorf("render report: %w", err))
	}

	messageID, err := h.mailer.Send(ctx, aws.Email{
		To:       recipients,
		Subject:  r.subject(),
		TextBody: r.text(),
		HTMLBody: htmlBody,
	})
	if err != nil {
		return nil, errors.NewReportSendFailedError(err)
	}

	h.logger.Info("application report sent", map[string]interface{}{
		"messageId":  messageID,
		"recipients": len(recipients),
		"total":      stats.Total,
	})

	return &Output{
		MessageID:     messageID,
		Recipients:    len(recipients),
		Total:         stats.Total,
		Approved:      stats.Approved,
		Rejected:      stats.Rejected,
		AvgScore:      stats.AvgScore,
		RecordsListed: len(records),
		SentAt:        r.GeneratedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
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
