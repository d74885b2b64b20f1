package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError_CoreFailuresNeverRetry(t *testing.T) {
	cause := stderrors.New("open model.json: no such file or directory")

	model := ConvertToBPMNError(NewModelUnavailableError(cause))
	assert.Equal(t, "MODEL_UNAVAILABLE", model.Code)
	assert.Equal(t, 0, model.Retries)
	assert.False(t, model.Retryable)

	storage := ConvertToBPMNError(NewStorageUnavailableError("insert", cause))
	assert.Equal(t, "STORAGE_UNAVAILABLE", storage.Code)
	assert.Equal(t, 0, storage.Retries)
	assert.Contains(t, storage.Details, "operation: insert")
}

func TestConvertToBPMNError_NotificationRetries(t *testing.T) {
	bpmn := ConvertToBPMNError(NewNotificationSendFailedError("sns", stderrors.New("throttled")))
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", vars["errorCode"])
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", vars["originalErrorCode"])
	assert.NotEmpty(t, vars["timestamp"])
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("list applications: %w", NewStorageUnavailableError("list", cause))

	assert.True(t, HasCode(err, ErrCodeStorageUnavailable))
	assert.False(t, HasCode(err, ErrCodeModelUnavailable))
	assert.True(t, stderrors.Is(err, cause))
}

func TestNormalize(t *testing.T) {
	std := NewApplicationValidationFailedError("farm_size must be > 0")
	assert.Same(t, std, Normalize(std))

	plain := Normalize(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeModelUnavailable:            "MODEL",
		ErrCodeStorageUnavailable:          "STORAGE",
		ErrCodeAuthenticationFailed:        "AUTH",
		ErrCodeReportSendFailed:            "NOTIFICATION",
		ErrCodeApplicationValidationFailed: "VALIDATION",
		ErrCodeInvalidRiskFilter:           "VALIDATION",
		ErrCodeInternal:                    "OTHER",
	}
	for code, expected := range tests {
		assert.Equal(t, expected, GetErrorCategory(code), string(code))
	}
}
