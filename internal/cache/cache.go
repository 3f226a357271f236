// Package cache keeps account ids and slimmed stat payloads in Redis so that
// repeated predictions for the same players skip the upstream providers.
// A cache failure is never fatal; it is logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
)

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type Config struct {
	Client     RedisClient
	AccountTTL time.Duration
	StatsTTL   time.Duration
	Logger     *zap.Logger
}

// RedisCache implements the lookup cache on top of Redis strings.
type RedisCache struct {
	client     RedisClient
	accountTTL time.Duration
	statsTTL   time.Duration
	logger     *zap.SugaredLogger
}

func New(cfg Config) *RedisCache {
	return &RedisCache{
		client:     cfg.Client,
		accountTTL: cfg.AccountTTL,
		statsTTL:   cfg.StatsTTL,
		logger:     cfg.Logger.Sugar(),
	}
}

func accountKey(region, name string) string {
	return fmt.Sprintf("wot:account:%s:%s", strings.ToLower(region), strings.ToLower(name))
}

func statsKey(server string, accountID int64) string {
	return fmt.Sprintf("wot:tomato:%s:%d", strings.ToLower(server), accountID)
}

func (c *RedisCache) GetAccountID(ctx context.Context, region, name string) (int64, bool) {
	val, err := c.client.Get(ctx, accountKey(region, name)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("Account cache read failed", "name", name, "error", err)
		}
		return 0, false
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (c *RedisCache) SetAccountID(ctx context.Context, region, name string, accountID int64) {
	if err := c.client.Set(ctx, accountKey(region, name), accountID, c.accountTTL).Err(); err != nil {
		c.logger.Warnw("Account cache write failed", "name", name, "error", err)
	}
}

func (c *RedisCache) GetStats(ctx context.Context, server string, accountID int64) (*models.PlayerStats, bool) {
	val, err := c.client.Get(ctx, statsKey(server, accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("Stats cache read failed", "account_id", accountID, "error", err)
		}
		return nil, false
	}
	var stats models.PlayerStats
	if err := json.Unmarshal(val, &stats); err != nil {
		c.logger.Warnw("Discarding corrupt stats cache entry", "account_id", accountID, "error", err)
		return nil, false
	}
	return &stats, true
}

func (c *RedisCache) SetStats(ctx context.Context, server string, accountID int64, stats *models.PlayerStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warnw("Failed to encode stats for cache", "account_id", accountID, "error", err)
		return
	}
	if err := c.client.Set(ctx, statsKey(server, accountID), data, c.statsTTL).Err(); err != nil {
		c.logger.Warnw("Stats cache write failed", "account_id", accountID, "error", err)
	}
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Nop is the cache used when Redis is not configured.
type Nop struct{}

func (Nop) GetAccountID(context.Context, string, string) (int64, bool) { return 0, false }
func (Nop) SetAccountID(context.Context, string, string, int64) {}
func (Nop) GetStats(context.Context, string, int64) (*models.PlayerStats, bool) { return nil, false }
func (Nop) SetStats(context.Context, string, int64, *models.PlayerStats) {}
func (Nop) Ping(context.Context) error { return nil }
