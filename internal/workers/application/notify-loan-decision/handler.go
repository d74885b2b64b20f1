// internal/workers/application/notify-loan-decision/handler.go
package notifyloandecision

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-loan-decision"

	DecisionApproved = "approved"
	DecisionDeclined = "declined"
)

// Publisher is satisfied by *aws.Publisher.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

type Handler struct {
	config       *Config
	publisher    Publisher
	now          func() time.Time
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, publisher Publisher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		publisher:    publisher,
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
	category := models.RiskCategory(input.RiskCategory)
	if err := (models.ApplicationFields{TrustScore: input.TrustScore, RiskCategory: category}).CheckConsistency(); err != nil {
		return nil, errors.NewApplicationValidationFailedError(err.Error())
	}
	if input.Approved != category.Approved() {
		return nil, errors.NewApplicationValidationFailedError(
			fmt.Sprintf("approved=%t contradicts risk category %q", input.Approved, category))
	}

	decision := DecisionDeclined
	if input.Approved {
		decision = DecisionApproved
	}
	decidedAt := h.now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(DecisionEvent{
		Event:         "loan.decision",
		ApplicationID: input.ApplicationID,
		ApplicantName: models.ApplicationFields{ApplicantName: input.ApplicantName}.Normalize().ApplicantName,
		TrustScore:    input.TrustScore,
		RiskCategory:  input.RiskCategory,
		Decision:      decision,
		ModelVersion:  input.ModelVersion,
		OfficerID:     input.OfficerID,
		DecidedAt:     decidedAt,
	})
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("sns", err)
	}

	attributes := map[string]string{
		"decision":     decision,
		"riskCategory": input.RiskCategory,
	}
	if input.ApplicationID > 0 {
		attributes["applicationId"] = strconv.FormatInt(input.ApplicationID, 10)
	}

	subject := fmt.Sprintf("Loan application %s (%s, trust score %.1f)", decision, input.RiskCategory, input.TrustScore)
	messageID, err := h.publisher.Publish(ctx, subject, string(body), attributes)
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("sns", err)
	}

	h.logger.Info("loan decision published", map[string]interface{}{
		"messageId":     messageID,
		"applicationId": input.ApplicationID,
		"decision":      decision,
	})

	return &Output{
		NotificationID:   messageID,
		NotificationSent: true,
		Decision:         decision,
		NotifiedAt:       decidedAt,
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
