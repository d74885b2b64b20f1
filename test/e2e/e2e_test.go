// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"agritrust-workers/internal/classifier"
	"agritrust-workers/internal/common/auth"
	"agritrust-workers/internal/common/aws"
	"agritrust-workers/internal/common/camunda"
	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/database"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/observability"
	"agritrust-workers/internal/models"
	"agritrust-workers/internal/scoring"
	"agritrust-workers/internal/store"
	"agritrust-workers/internal/training"

	createapplicationrecord "agritrust-workers/internal/workers/application/create-application-record"
	notifyloandecision "agritrust-workers/internal/workers/application/notify-loan-decision"
	sendapplicationreport "agritrust-workers/internal/workers/application/send-application-report"
	evaluatecreditscore "agritrust-workers/internal/workers/scoring/evaluate-credit-score"
)

var model *classifier.Ensemble

func TestMain(m *testing.M) {
	samples := training.GenerateDataset(600, 11)
	artifact, err := training.Train(samples, training.Params{
		MaxDepth:     3,
		Rounds:       25,
		Seed:         11,
		ModelVersion: "e2e-1",
	})
	if err != nil {
		panic(fmt.Sprintf("failed to train model: %v", err))
	}
	model, err = classifier.NewEnsemble(artifact)
	if err != nil {
		panic(fmt.Sprintf("failed to compile model: %v", err))
	}

	os.Exit(m.Run())
}

type recordingMailer struct {
	mu     sync.Mutex
	emails []aws.Email
}

func (m *recordingMailer) Send(_ context.Context, email aws.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return fmt.Sprintf("ses-%d", len(m.emails)), nil
}

type published struct {
	subject    string
	message    string
	attributes map[string]string
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, subject, message string, attributes map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{subject, message, attributes})
	return fmt.Sprintf("sns-%d", len(p.messages)), nil
}

// process mimics Zeebe variable propagation: each worker's output is merged
// into the instance variables the next worker receives.
type process map[string]interface{}

func (p process) merge(t *testing.T, output interface{}) {
	raw, err := json.Marshal(output)
	require.NoError(t, err)
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &vars))
	for k, v := range vars {
		p[k] = v
	}
}

func (p process) variables(t *testing.T) string {
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return string(raw)
}

func TestLoanPipeline(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	reader := metric.NewManualReader()
	obs := observability.NewWithReader("agritrust-e2e", reader)
	pipeline := scoring.NewPipeline(model, scoring.Options{Recorder: obs})

	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "e2e.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	st := store.New(client.DB, config.DriverSQLite, log)
	require.NoError(t, st.Migrate(ctx))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := store.NewCachedRepository(st, rdb, time.Minute, log)

	mailer := &recordingMailer{}
	publisher := &recordingPublisher{}

	evaluate := evaluatecreditscore.NewHandler(evaluatecreditscore.LoadConfig(config.WorkerConfig{}), pipeline, log)
	record := createapplicationrecord.NewHandler(createapplicationrecord.LoadConfig(config.WorkerConfig{}), repo, log)
	notify := notifyloandecision.NewHandler(notifyloandecision.LoadConfig(config.WorkerConfig{}), publisher, log)
	report := sendapplicationreport.NewHandler(
		sendapplicationreport.LoadConfig(config.WorkerConfig{}, []string{"credit.desk@agritrust.example"}),
		repo, mailer, log,
	)

	// warm the summary cache so the inserts below must invalidate it
	stats, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)

	applicants := []process{
		{"applicantName": "Amina Njoroge", "farmSize": 12.5, "soilScore": 82, "rainfall": 1100.0, "previousLoans": 1, "yieldAmount": 4.2, "officerId": "officer"},
		{"applicantName": "", "farmSize": 0.8, "soilScore": 18, "rainfall": 240.0, "previousLoans": 6, "yieldAmount": 0.4},
		{"applicantName": "Joseph Otieno", "farmSize": 5.0, "soilScore": 55, "rainfall": 700.0, "previousLoans": 2, "yieldAmount": 2.1, "officerId": "officer"},
	}

	approved := 0
	for i, vars := range applicants {
		t.Run(fmt.Sprintf("applicant-%d", i), func(t *testing.T) {
			in, err := evaluatecreditscore.ParseInput(vars.variables(t))
			require.NoError(t, err)
			scored, err := evaluate.Execute(ctx, in)
			require.NoError(t, err)

			assert.Equal(t, "e2e-1", scored.ModelVersion)
			assert.Equal(t, scored.TrustScore >= 50, scored.Approved)
			assert.Equal(t, string(models.CategoryForScore(scored.TrustScore)), scored.RiskCategory)
			assert.NotEmpty(t, scored.Explanations)
			if scored.Approved {
				approved++
			}
			vars.merge(t, scored)

			recIn, err := createapplicationrecord.ParseInput(vars.variables(t))
			require.NoError(t, err)
			created, err := record.Execute(ctx, recIn)
			require.NoError(t, err)
			assert.Positive(t, created.ApplicationID)
			if _, ok := vars["officerId"]; !ok {
				assert.Equal(t, models.DefaultOfficerID, created.OfficerID)
			}
			vars.merge(t, created)

			nIn, err := notifyloandecision.ParseInput(vars.variables(t))
			require.NoError(t, err)
			notified, err := notify.Execute(ctx, nIn)
			require.NoError(t, err)
			assert.True(t, notified.NotificationSent)
			if scored.Approved {
				assert.Equal(t, notifyloandecision.DecisionApproved, notified.Decision)
			} else {
				assert.Equal(t, notifyloandecision.DecisionDeclined, notified.Decision)
			}
		})
	}

	require.Len(t, publisher.messages, len(applicants))
	for _, msg := range publisher.messages {
		assert.NotEmpty(t, msg.attributes["applicationId"])
	}

	records, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, len(applicants))
	for _, r := range records {
		assert.Equal(t, models.CategoryForScore(r.TrustScore), r.RiskCategory)
		assert.False(t, r.Timestamp.IsZero())
	}

	in, err := sendapplicationreport.ParseInput(`{}`)
	require.NoError(t, err)
	out, err := report.Execute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, len(applicants), out.Total)
	assert.Equal(t, approved, out.Approved)
	assert.Equal(t, len(applicants)-approved, out.Rejected)
	assert.Equal(t, len(applicants), out.RecordsListed)

	require.Len(t, mailer.emails, 1)
	assert.Equal(t, []string{"credit.desk@agritrust.example"}, mailer.emails[0].To)
	assert.Contains(t, mailer.emails[0].TextBody, models.DefaultApplicantName)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["scoring.evaluations"])
}

func TestCheckedInConfigLoads(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	t.Setenv("AGRITRUST_ADMIN_PASSWORD_HASH", hash)
	t.Setenv("AGRITRUST_OFFICER_PASSWORD_HASH", hash)
	t.Setenv("AGRITRUST_JWT_SECRET", "e2e-secret-0123456789")

	cfg, err := config.LoadFromFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, hash, cfg.Auth.Users[0].PasswordHash)
	for _, taskType := range []string{
		evaluatecreditscore.TaskType,
		createapplicationrecord.TaskType,
		notifyloandecision.TaskType,
		sendapplicationreport.TaskType,
	} {
		assert.True(t, config.IsWorkerEnabled(cfg, taskType), taskType)
	}

	table, err := auth.NewCredentialTable(cfg.Auth.Users)
	require.NoError(t, err)
	user, ok := table.Authenticate("admin", "admin123")
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

// TestZeebeTopology needs a running broker, e.g. the camunda/zeebe image.
func TestZeebeTopology(t *testing.T) {
	addr := os.Getenv("ZEEBE_ADDRESS")
	if addr == "" {
		t.Skip("ZEEBE_ADDRESS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(config.CamundaConfig{
		Enabled:        true,
		BrokerAddress:  addr,
		RequestTimeout: 10000,
	}))
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(ctx))
}
