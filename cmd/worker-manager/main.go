// cmd/worker-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agritrust-workers/internal/api"
	"agritrust-workers/internal/classifier"
	"agritrust-workers/internal/common/auth"
	"agritrust-workers/internal/common/aws"
	"agritrust-workers/internal/common/camunda"
	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/common/database"
	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/observability"
	"agritrust-workers/internal/scoring"
	"agritrust-workers/internal/store"

	car "agritrust-workers/internal/workers/application/create-application-record"
	nld "agritrust-workers/internal/workers/application/notify-loan-decision"
	sar "agritrust-workers/internal/workers/application/send-application-report"
	ecs "agritrust-workers/internal/workers/scoring/evaluate-credit-score"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// loadClassifier returns a nil interface on failure so the pipeline reports
// MODEL_UNAVAILABLE per request instead of the process refusing to start.
func loadClassifier(cfg config.ModelConfig) (classifier.Classifier, error) {
	if cfg.RemoteURL != "" {
		return classifier.NewRemote(cfg.RemoteURL, cfg.RemoteAPIKey, cfg.Version, config.GetDuration(cfg.Timeout)), nil
	}
	e, err := classifier.LoadEnsemble(cfg.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	// --- Database ---
	var db *database.SQLClient
	err = retryWithBackoff(ctx, func() error {
		c, err := database.Open(cfg.Database)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx); err != nil {
			c.Close()
			return err
		}
		db = c
		return nil
	}, 15, 2*time.Second, log, "database connection")
	if err != nil {
		log.Error("database unavailable", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db.DB, db.Driver, log)
	if err := st.Migrate(ctx); err != nil {
		log.Error("schema migration failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	log.Info("database ready", map[string]interface{}{"driver": db.Driver})

	var repo store.Repository = st

	// --- Redis summary cache (optional) ---
	if cfg.Database.Redis.Enabled() {
		var rc *database.RedisClient
		err = retryWithBackoff(ctx, func() error {
			c, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := c.Ping(ctx); err != nil {
				c.Close()
				return err
			}
			rc = c
			return nil
		}, 5, time.Second, log, "Redis connection")
		if err != nil {
			log.Warn("redis unavailable, summary cache disabled", map[string]interface{}{"error": err})
		} else {
			defer rc.Close()
			repo = store.NewCachedRepository(st, rc.Client, time.Duration(cfg.Cache.SummaryTTL)*time.Second, log)
			log.Info("summary cache enabled", map[string]interface{}{"ttlSeconds": cfg.Cache.SummaryTTL})
		}
	}

	// --- Model ---
	model, err := loadClassifier(cfg.Model)
	if err != nil {
		log.Error("classifier not loaded, evaluations will fail with MODEL_UNAVAILABLE", map[string]interface{}{
			"error": err,
			"path":  cfg.Model.ArtifactPath,
		})
	} else {
		log.Info("classifier loaded", map[string]interface{}{"modelVersion": model.Version()})
	}
	pipeline := scoring.NewPipeline(model, scoring.Options{Recorder: obs})

	// --- HTTP API ---
	credentials, err := auth.NewCredentialTable(cfg.Auth.Users)
	if err != nil {
		log.Error("invalid credential table", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	tokens := auth.NewTokenIssuer(cfg.API.JWTSecret, time.Duration(cfg.API.TokenTTL)*time.Minute)

	server := api.NewServer(api.Dependencies{
		Pipeline:      pipeline,
		Repository:    repo,
		Authenticator: credentials,
		Tokens:        tokens,
		APIKeys:       cfg.API.APIKeys,
		Ready:         db.Ping,
		Logger:        log,
	})
	httpServer := &http.Server{
		Addr:              cfg.API.Address,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP API listening", map[string]interface{}{
			"address": cfg.API.Address,
			"users":   credentials.Len(),
		})
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP API failed", map[string]interface{}{"error": err})
			stop()
		}
	}()

	// --- Zeebe workers ---
	if cfg.Camunda.Enabled {
		zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromApp(cfg.Camunda))
		if err != nil {
			log.Error("zeebe client failed", map[string]interface{}{"error": err})
			os.Exit(1)
		}
		defer zeebe.Close()
		log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

		workers := camunda.NewWorkers(zeebe.GetClient(), obs, log)
		defer workers.Close()
		registerWorkers(ctx, cfg, workers, pipeline, repo, log)
		log.Info("workers registered", map[string]interface{}{"count": workers.Len()})
	} else {
		log.Info("camunda disabled, running HTTP API only", nil)
	}

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP API shutdown failed", map[string]interface{}{"error": err})
	}
	log.Info("worker manager stopped", nil)
}

func registerWorkers(ctx context.Context, cfg *config.Config, workers *camunda.Workers, pipeline *scoring.Pipeline, repo store.Repository, log logger.Logger) {
	if taskType := ecs.TaskType; config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		handler := ecs.NewHandler(ecs.LoadConfig(wcfg), pipeline, log)
		workers.Start(taskType, wcfg, handler.Handle)
	}

	if taskType := car.TaskType; config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		handler := car.NewHandler(car.LoadConfig(wcfg), repo, log)
		workers.Start(taskType, wcfg, handler.Handle)
	}

	awsCfg := cfg.Integrations.AWS
	if !awsCfg.SES.Enabled && !awsCfg.SNS.Enabled {
		log.Info("AWS integrations disabled, report and notification workers not started", nil)
		return
	}
	sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
	if err != nil {
		log.Error("AWS config failed, report and notification workers not started", map[string]interface{}{"error": err})
		return
	}

	if taskType := sar.TaskType; awsCfg.SES.Enabled && config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		mailer := aws.NewMailer(sdkCfg, awsCfg.SES.FromEmail)
		handler := sar.NewHandler(sar.LoadConfig(wcfg, awsCfg.SES.ReportRecipients), repo, mailer, log)
		workers.Start(taskType, wcfg, handler.Handle)
	}

	if taskType := nld.TaskType; awsCfg.SNS.Enabled && config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		publisher := aws.NewPublisher(sdkCfg, awsCfg.SNS.TopicARN)
		handler := nld.NewHandler(nld.LoadConfig(wcfg), publisher, log)
		workers.Start(taskType, wcfg, handler.Handle)
	}
}
