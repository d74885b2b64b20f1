// Package store persists evaluated applications in an append-only table and
// answers the reporting queries over it.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/models"

	"github.com/jmoiron/sqlx"
)

var (
	//go:embed schema/postgres.sql
	postgresDDL string

	//go:embed schema/sqlite.sql
	sqliteDDL string
)

// Repository is the read/append surface shared by Store and CachedRepository.
type Repository interface {
	Insert(ctx context.Context, fields models.ApplicationFields, officerID string) (*models.ApplicationRecord, error)
	List(ctx context.Context, filter models.RiskCategory) ([]models.ApplicationRecord, error)
	Summary(ctx context.Context) (*models.ApplicationStats, error)
}

type Store struct {
	db     *sqlx.DB
	driver string
	logger logger.Logger
	now    func() time.Time

	// serializes writers; sqlite allows one at a time anyway
	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the timestamp source used by Insert.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sqlx.DB, driver string, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		driver: driver,
		logger: log.WithFields(map[string]interface{}{"component": "application-store"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// applicationRow mirrors the table; conversion to models happens in toRecord.
type applicationRow struct {
	ID            int64   `db:"id"`
	ApplicantName string  `db:"applicant_name"`
	FarmSize      float64 `db:"farm_size"`
	SoilScore     int     `db:"soil_score"`
	Rainfall      float64 `db:"rainfall"`
	PreviousLoans int     `db:"previous_loans"`
	YieldAmount   float64 `db:"yield_amount"`
	TrustScore    float64 `db:"trust_score"`
	RiskCategory  string  `db:"risk_category"`
	OfficerID     string  `db:"officer_id"`
	CreatedAt     string  `db:"created_at"`
}

func (r applicationRow) toRecord() (models.ApplicationRecord, error) {
	ts, err := time.ParseInLocation(models.TimestampLayout, r.CreatedAt, time.UTC)
	if err != nil {
		return models.ApplicationRecord{}, fmt.Errorf("application %d has malformed created_at %q: %w", r.ID, r.CreatedAt, err)
	}
	return models.ApplicationRecord{
		ID:            r.ID,
		ApplicantName: r.ApplicantName,
		FarmSize:      r.FarmSize,
		SoilScore:     r.SoilScore,
		Rainfall:      r.Rainfall,
		PreviousLoans: r.PreviousLoans,
		YieldAmount:   r.YieldAmount,
		TrustScore:    r.TrustScore,
		RiskCategory:  models.RiskCategory(r.RiskCategory),
		OfficerID:     r.OfficerID,
		Timestamp:     ts,
	}, nil
}

const selectColumns = `id, applicant_name, farm_size, soil_score, rainfall, previous_loans,
	yield_amount, trust_score, risk_category, officer_id, created_at`

// Migrate creates the applications table and its indexes. Safe to rerun.
func (s *Store) Migrate(ctx context.Context) error {
	var ddl string
	switch s.driver {
	case config.DriverPostgres:
		ddl = postgresDDL
	case config.DriverSQLite:
		ddl = sqliteDDL
	default:
		return fmt.Errorf("no schema for driver %q", s.driver)
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.NewStorageUnavailableError("migrate", err)
	}

	s.logger.Info("application schema ready", map[string]interface{}{
		"driver": s.driver,
	})
	return nil
}

// Insert appends one record. The id and timestamp are assigned here.
func (s *Store) Insert(ctx context.Context, fields models.ApplicationFields, officerID string) (*models.ApplicationRecord, error) {
	fields = fields.Normalize()
	if err := fields.CheckConsistency(); err != nil {
		return nil, errors.NewApplicationValidationFailedError(err.Error())
	}

	officerID = strings.TrimSpace(officerID)
	if officerID == "" {
		officerID = models.DefaultOfficerID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC().Truncate(time.Second)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("insert", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO applications (
			applicant_name, farm_size, soil_score, rainfall, previous_loans,
			yield_amount, trust_score, risk_category, officer_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		fields.ApplicantName,
		fields.FarmSize,
		fields.SoilScore,
		fields.Rainfall,
		fields.PreviousLoans,
		fields.YieldAmount,
		fields.TrustScore,
		string(fields.RiskCategory),
		officerID,
		createdAt.Format(models.TimestampLayout),
	).Scan(&id)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("insert", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageUnavailableError("insert", err)
	}

	metrics.ApplicationsStored.WithLabelValues(string(fields.RiskCategory)).Inc()
	s.logger.Info("application stored", map[string]interface{}{
		"applicationId": id,
		"riskCategory":  fields.RiskCategory,
		"trustScore":    fields.TrustScore,
		"officerId":     officerID,
	})

	return &models.ApplicationRecord{
		ID:            id,
		ApplicantName: fields.ApplicantName,
		FarmSize:      fields.FarmSize,
		SoilScore:     fields.SoilScore,
		Rainfall:      fields.Rainfall,
		PreviousLoans: fields.PreviousLoans,
		YieldAmount:   fields.YieldAmount,
		TrustScore:    fields.TrustScore,
		RiskCategory:  fields.RiskCategory,
		OfficerID:     officerID,
		Timestamp:     createdAt,
	}, nil
}

// List returns records newest first. An empty filter means every category.
func (s *Store) List(ctx context.Context, filter models.RiskCategory) ([]models.ApplicationRecord, error) {
	if filter != "" && !filter.Valid() {
		return nil, errors.NewInvalidRiskFilterError(string(filter))
	}

	query := `SELECT ` + selectColumns + ` FROM applications`
	var args []interface{}
	if filter != "" {
		query += ` WHERE risk_category = ?`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []applicationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.NewStorageUnavailableError("list", err)
	}

	records := make([]models.ApplicationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, errors.NewStorageUnavailableError("list", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

type categoryTotals struct {
	RiskCategory string          `db:"risk_category"`
	Count        int             `db:"n"`
	ScoreSum     sql.NullFloat64 `db:"score_sum"`
}

// Summary aggregates the whole table in one query so the counts always agree.
func (s *Store) Summary(ctx context.Context) (*models.ApplicationStats, error) {
	var totals []categoryTotals
	err := s.db.SelectContext(ctx, &totals, `
		SELECT risk_category, COUNT(*) AS n, SUM(trust_score) AS score_sum
		FROM applications
		GROUP BY risk_category`)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("summary", err)
	}

	stats := &models.ApplicationStats{Distribution: map[models.RiskCategory]int{}}
	var scoreSum float64
	for _, t := range totals {
		category := models.RiskCategory(t.RiskCategory)
		stats.Distribution[category] = t.Count
		stats.Total += t.Count
		if category.Approved() {
			stats.Approved += t.Count
		}
		scoreSum += t.ScoreSum.Float64
	}
	stats.Rejected = stats.Total - stats.Approved
	if stats.Total > 0 {
		stats.AvgScore = math.Round(scoreSum/float64(stats.Total)*10) / 10
	}
	return stats, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewStorageUnavailableError("ping", err)
	}
	return nil
}
