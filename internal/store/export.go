package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"agritrust-workers/internal/models"
)

var csvHeader = []string{
	"id", "applicant_name", "farm_size", "soil_score", "rainfall", "previous_loans",
	"yield_amount", "trust_score", "risk_category", "officer_id", "timestamp",
}

// WriteCSV writes records with a header row, in the order given.
func WriteCSV(w io.Writer, records []models.ApplicationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.ApplicantName,
			formatFloat(r.FarmSize),
			strconv.Itoa(r.SoilScore),
			formatFloat(r.Rainfall),
			strconv.Itoa(r.PreviousLoans),
			formatFloat(r.YieldAmount),
			strconv.FormatFloat(r.TrustScore, 'f', 1, 64),
			string(r.RiskCategory),
			r.OfficerID,
			r.Timestamp.UTC().Format(models.TimestampLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
