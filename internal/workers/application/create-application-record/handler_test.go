// internal/workers/application/create-application-record/handler_test.go
package createapplicationrecord

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func createTestInput() *Input {
	return &Input{
		ApplicantName: "Amina Njoroge",
		FarmSize:      5,
		SoilScore:     65,
		Rainfall:      750,
		PreviousLoans: 1,
		YieldAmount:   3.5,
		TrustScore:    76.9,
		RiskCategory:  "Low Risk",
		OfficerID:     "officer",
	}
}

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	repo := store.New(sqlx.NewDb(db, "postgres"), config.DriverPostgres, log,
		store.WithClock(func() time.Time { return fixedNow }))
	return NewHandler(LoadConfig(config.WorkerConfig{}), repo, log), mock
}

func TestHandler_Execute_Success(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO applications`).
		WithArgs("Amina Njoroge", 5.0, 65, 750.0, 1, 3.5, 76.9, "Low Risk", "officer", "2025-03-14 09:26:53").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, int64(42), out.ApplicationID)
	assert.Equal(t, "officer", out.OfficerID)
	assert.Equal(t, "2025-03-14T09:26:53Z", out.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DefaultOfficer(t *testing.T) {
	h, mock := newTestHandler(t)
	input := createTestInput()
	input.OfficerID = ""

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO applications`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "system", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "system", out.OfficerID)
}

func TestHandler_Execute_InconsistentCategory(t *testing.T) {
	h, mock := newTestHandler(t)
	input := createTestInput()
	input.RiskCategory = "High Risk"

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidFarmData(t *testing.T) {
	h, _ := newTestHandler(t)
	input := createTestInput()
	input.YieldAmount = 0

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
}

func TestHandler_Execute_StorageUnavailable(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO applications`).WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := h.Execute(context.Background(), createTestInput())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageUnavailable))

	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "STORAGE_UNAVAILABLE", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
}

func TestParseInput(t *testing.T) {
	input, err := ParseInput(`{"applicantName":"Amina","farmSize":5,"soilScore":65,"rainfall":750,` +
		`"previousLoans":1,"yieldAmount":3.5,"trustScore":76.9,"riskCategory":"Low Risk","approved":true}`)
	require.NoError(t, err)
	assert.Equal(t, "Low Risk", input.RiskCategory)

	_, err = ParseInput(`{"farmSize":5,"soilScore":65,"rainfall":750,"previousLoans":1,` +
		`"yieldAmount":3.5,"trustScore":76.9,"riskCategory":"Medium"}`)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))

	_, err = ParseInput(`not json`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInputParsingFailed))
}
