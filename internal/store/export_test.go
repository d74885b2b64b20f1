package store

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"agritrust-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	records := []models.ApplicationRecord{
		{
			ID: 2, ApplicantName: "Mensah, Kofi", FarmSize: 12.25, SoilScore: 80, Rainfall: 900,
			PreviousLoans: 2, YieldAmount: 4.1, TrustScore: 81, RiskCategory: models.RiskLow,
			OfficerID: "officer-1", Timestamp: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"2", "Mensah, Kofi", "12.25", "80", "900", "2", "4.1", "81.0", "Low Risk", "officer-1", "2025-03-02 10:00:00",
	}, rows[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,applicant_name,farm_size,soil_score,rainfall,previous_loans,yield_amount,trust_score,risk_category,officer_id,timestamp\n", buf.String())
}
