// internal/workers/scoring/evaluate-credit-score/handler_test.go
package evaluatecreditscore

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier struct {
	p   float64
	err error
}

func (f *fixedClassifier) PredictProba(context.Context, []float64) (float64, error) {
	return f.p, f.err
}

func (f *fixedClassifier) Version() string { return "1.3.0-agritrust" }

func newTestHandler(t *testing.T, clf *fixedClassifier) *Handler {
	pipeline := scoring.NewPipeline(clf, scoring.Options{})
	return NewHandler(LoadConfig(config.WorkerConfig{}), pipeline, logger.NewTestLogger(t))
}

func createTestInput() *Input {
	return &Input{
		ApplicantName: "Amina Njoroge",
		FarmSize:      5,
		SoilScore:     65,
		Rainfall:      750,
		PreviousLoans: 1,
		YieldAmount:   3.5,
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	h := newTestHandler(t, &fixedClassifier{p: 0.62})

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, 76.9, out.TrustScore)
	assert.Equal(t, "Low Risk", out.RiskCategory)
	assert.True(t, out.Approved)
	assert.Equal(t, "1.3.0-agritrust", out.ModelVersion)
	require.NotEmpty(t, out.Explanations)
	assert.Equal(t, "overall", out.Explanations[len(out.Explanations)-1].Factor)
}

func TestHandler_Execute_BoundaryProbability(t *testing.T) {
	h := newTestHandler(t, &fixedClassifier{p: 0.5})

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.TrustScore)
	assert.Equal(t, "Moderate Risk", out.RiskCategory)
	assert.True(t, out.Approved)
}

func TestHandler_Execute_OutOfRange(t *testing.T) {
	h := newTestHandler(t, &fixedClassifier{p: 0.62})
	input := createTestInput()
	input.SoilScore = 130

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
}

func TestHandler_Execute_ModelUnavailable(t *testing.T) {
	h := newTestHandler(t, &fixedClassifier{err: stderrors.New("model file missing")})

	_, err := h.Execute(context.Background(), createTestInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, 0, bpmn.Retries)
}

func TestHandler_Execute_Timeout(t *testing.T) {
	h := newTestHandler(t, &fixedClassifier{err: context.DeadlineExceeded})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := h.Execute(ctx, createTestInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code errors.ErrorCode
	}{
		{"malformed", `{"farmSize":`, errors.ErrCodeInputParsingFailed},
		{"missing field", `{"farmSize":5,"soilScore":65,"rainfall":750,"yieldAmount":3.5}`, errors.ErrCodeApplicationValidationFailed},
		{"negative loans", `{"farmSize":5,"soilScore":65,"rainfall":750,"previousLoans":-1,"yieldAmount":3.5}`, errors.ErrCodeApplicationValidationFailed},
		{"fractional soil", `{"farmSize":5,"soilScore":65.5,"rainfall":750,"previousLoans":1,"yieldAmount":3.5}`, errors.ErrCodeApplicationValidationFailed},
		{"zero farm", `{"farmSize":0,"soilScore":65,"rainfall":750,"previousLoans":1,"yieldAmount":3.5}`, errors.ErrCodeApplicationValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInput(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestParseInput_IgnoresOtherProcessVariables(t *testing.T) {
	input, err := ParseInput(`{"farmSize":5,"soilScore":65,"rainfall":0,"previousLoans":0,"yieldAmount":3.5,"applicationId":7,"officerId":"officer"}`)
	require.NoError(t, err)
	assert.Equal(t, 65, input.SoilScore)
	assert.Equal(t, 0.0, input.Rainfall)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2500*time.Millisecond, LoadConfig(config.WorkerConfig{Timeout: 2500}).Timeout)
}
