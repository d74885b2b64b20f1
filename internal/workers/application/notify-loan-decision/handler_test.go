package notifyloandecision

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error) {
	args := m.Called(ctx, subject, message, attributes)
	return args.String(0), args.Error(1)
}

func newTestHandler(t *testing.T, pub Publisher) *Handler {
	h := NewHandler(LoadConfig(config.WorkerConfig{}), pub, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return h
}

func TestHandler_Execute_Approved(t *testing.T) {
	pub := &mockPublisher{}
	var message string
	pub.On("Publish", mock.Anything,
		"Loan application approved (Low Risk, trust score 76.9)",
		mock.AnythingOfType("string"),
		map[string]string{"decision": "approved", "riskCategory": "Low Risk", "applicationId": "42"},
	).Run(func(args mock.Arguments) { message = args.String(2) }).Return("sns-msg-1", nil)

	h := newTestHandler(t, pub)
	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: 42,
		ApplicantName: "Amina Njoroge",
		TrustScore:    76.9,
		RiskCategory:  "Low Risk",
		Approved:      true,
		ModelVersion:  "1.3.0-agritrust",
	})
	require.NoError(t, err)
	assert.Equal(t, "sns-msg-1", out.NotificationID)
	assert.True(t, out.NotificationSent)
	assert.Equal(t, DecisionApproved, out.Decision)
	assert.Equal(t, "2025-03-14T09:30:00Z", out.NotifiedAt)

	var event DecisionEvent
	require.NoError(t, json.Unmarshal([]byte(message), &event))
	assert.Equal(t, "loan.decision", event.Event)
	assert.Equal(t, int64(42), event.ApplicationID)
	assert.Equal(t, "approved", event.Decision)
	pub.AssertExpectations(t)
}

func TestHandler_Execute_DeclinedAnonymous(t *testing.T) {
	pub := &mockPublisher{}
	var message string
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything,
		map[string]string{"decision": "declined", "riskCategory": "High Risk"},
	).Run(func(args mock.Arguments) { message = args.String(2) }).Return("sns-msg-2", nil)

	h := newTestHandler(t, pub)
	out, err := h.Execute(context.Background(), &Input{TrustScore: 37.8, RiskCategory: "High Risk"})
	require.NoError(t, err)
	assert.Equal(t, DecisionDeclined, out.Decision)
	assert.Contains(t, message, `"applicantName":"Anonymous"`)
	assert.NotContains(t, message, "applicationId")
}

func TestHandler_Execute_Inconsistent(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"score outside tier", &Input{TrustScore: 49.9, RiskCategory: "Moderate Risk", Approved: true}},
		{"approval contradicts tier", &Input{TrustScore: 50.0, RiskCategory: "Moderate Risk", Approved: false}},
		{"unknown tier", &Input{TrustScore: 80, RiskCategory: "Medium", Approved: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			h := newTestHandler(t, pub)
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_PublishFailure(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", stderrors.New("AuthorizationError"))

	h := newTestHandler(t, pub)
	_, err := h.Execute(context.Background(), &Input{TrustScore: 76.9, RiskCategory: "Low Risk", Approved: true})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotificationSendFailed))

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput(`{"applicationId":42,"trustScore":76.9,"riskCategory":"Low Risk","approved":true,"farmSize":5}`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), in.ApplicationID)

	_, err = ParseInput(`{"trustScore":76.9,"riskCategory":"Low Risk"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))

	_, err = ParseInput(`{"trustScore":76.9,"riskCategory":"Low Risk","approved":"yes"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
}
