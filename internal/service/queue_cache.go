package service

import (
	"context"
	"fmt"
	"time"

	"go-consultation-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// Redis key prefix for per-specialist waiting counts
	queueDepthKeyPrefix = "queue:depth:"

	// Depth keys expire if a specialist's queue goes untouched for a day
	queueDepthTTL = 24 * time.Hour
)

// QueueCache mirrors per-specialist waiting counts so position lookups don't
// need an extra count query. The durable store stays authoritative; callers
// fall back to it on a miss.
type QueueCache interface {
	SetDepth(ctx context.Context, specialistID uuid.UUID, depth int) error
	Depth(ctx context.Context, specialistID uuid.UUID) (int, bool)
}

// RedisQueueCache is the production QueueCache backed by Redis
type RedisQueueCache struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewRedisQueueCache(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *RedisQueueCache {
	return &RedisQueueCache{
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

// SyncOnStartup recounts waiting entries per specialist from the database and
// overwrites the cached depths. Should be called before accepting traffic so
// stale counts from a previous run never leak into responses.
func (c *RedisQueueCache) SyncOnStartup(ctx context.Context) error {
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.log.Warnf("Redis is not available, skipping queue depth sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	type depthRow struct {
		SpecialistID uuid.UUID
		Depth        int
	}
	var rows []depthRow

	err := c.db.WithContext(ctx).Model(&entity.QueueEntry{}).
		Select("specialist_id, COUNT(*) as depth").
		Where("status = ?", entity.QueueStatusWaiting).
		Group("specialist_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("count waiting entries: %w", err)
	}

	if len(rows) == 0 {
		c.log.Info("No waiting queue entries found for depth sync")
		return nil
	}

	pipe := c.redisClient.TxPipeline()
	for _, row := range rows {
		pipe.Set(ctx, queueDepthKeyPrefix+row.SpecialistID.String(), row.Depth, queueDepthTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue depth pipeline exec: %w", err)
	}

	c.log.Infof("Queue depth sync completed: %d specialists", len(rows))
	return nil
}

func (c *RedisQueueCache) SetDepth(ctx context.Context, specialistID uuid.UUID, depth int) error {
	key := queueDepthKeyPrefix + specialistID.String()
	if err := c.redisClient.Set(ctx, key, depth, queueDepthTTL).Err(); err != nil {
		c.log.Warnf("Failed to cache queue depth for specialist %s: %+v", specialistID, err)
		return fmt.Errorf("set queue depth for specialist %s: %w", specialistID, err)
	}
	return nil
}

// Depth returns the cached waiting count; ok is false on a miss or Redis error
func (c *RedisQueueCache) Depth(ctx context.Context, specialistID uuid.UUID) (int, bool) {
	key := queueDepthKeyPrefix + specialistID.String()
	depth, err := c.redisClient.Get(ctx, key).Int()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnf("Failed to read queue depth for specialist %s: %+v", specialistID, err)
		}
		return 0, false
	}
	return depth, true
}
