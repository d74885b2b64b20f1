package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"agritrust-workers/internal/common/logger"
	"agritrust-workers/internal/common/metrics"
	"agritrust-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	SummaryCacheKey = "agritrust:applications:summary"
	// SummaryGenerationKey is bumped after every insert. A summary is only
	// cached if the generation it was computed under is still current.
	SummaryGenerationKey = "agritrust:applications:summary:gen"
)

// CachedRepository keeps the latest Summary in Redis. Any Redis failure falls
// through to the wrapped repository.
type CachedRepository struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRepository(next Repository, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "summary-cache"}),
	}
}

func (c *CachedRepository) Insert(ctx context.Context, fields models.ApplicationFields, officerID string) (*models.ApplicationRecord, error) {
	rec, err := c.next.Insert(ctx, fields, officerID)
	if err != nil {
		return nil, err
	}

	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, SummaryGenerationKey)
		pipe.Del(ctx, SummaryCacheKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to invalidate summary cache", map[string]interface{}{
			"error":         err,
			"applicationId": rec.ID,
		})
	}
	return rec, nil
}

func (c *CachedRepository) List(ctx context.Context, filter models.RiskCategory) ([]models.ApplicationRecord, error) {
	return c.next.List(ctx, filter)
}

func (c *CachedRepository) Summary(ctx context.Context) (*models.ApplicationStats, error) {
	raw, err := c.redis.Get(ctx, SummaryCacheKey).Bytes()
	switch {
	case err == nil:
		var stats models.ApplicationStats
		jsonErr := json.Unmarshal(raw, &stats)
		if jsonErr == nil {
			metrics.SummaryCacheLookups.WithLabelValues("hit").Inc()
			return &stats, nil
		}
		c.logger.Warn("discarding corrupt summary cache entry", map[string]interface{}{
			"error": jsonErr,
		})
		metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
	case stderrors.Is(err, redis.Nil):
		metrics.SummaryCacheLookups.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("summary cache read failed", map[string]interface{}{
			"error": err,
		})
		metrics.SummaryCacheLookups.WithLabelValues("error").Inc()
	}

	gen, genErr := c.generation(ctx)

	stats, err := c.next.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return stats, nil
	}

	if err := c.store(ctx, gen, stats); err != nil {
		c.logger.Warn("failed to cache summary", map[string]interface{}{
			"error": err,
		})
	}
	return stats, nil
}

func (c *CachedRepository) generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, SummaryGenerationKey).Int64()
	if stderrors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store writes stats unless an insert has bumped the generation since gen was
// read. A lost race simply leaves the cache empty.
func (c *CachedRepository) store(ctx context.Context, gen int64, stats *models.ApplicationStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, SummaryGenerationKey).Int64()
		if err != nil && !stderrors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleSummary
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, SummaryCacheKey, payload, c.ttl)
			return nil
		})
		return err
	}, SummaryGenerationKey)

	if stderrors.Is(err, errStaleSummary) || stderrors.Is(err, redis.TxFailedErr) {
		metrics.SummaryCacheLookups.WithLabelValues("stale").Inc()
		return nil
	}
	return err
}

var errStaleSummary = stderrors.New("summary computed under an older generation")
