package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bilgisen/autowriter/internal/logger"
	"github.com/bilgisen/autowriter/internal/models"
)

const defaultMaxEntries = 500

// RedisLog keeps a capped list of recent activity per site
type RedisLog struct {
	client     redis.UniversalClient
	prefix     string
	maxEntries int64
	timeout    time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// Connect parses url and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisLog wraps client. maxEntries <= 0 uses the default cap.
func NewRedisLog(client redis.UniversalClient, prefix string, maxEntries int) *RedisLog {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &RedisLog{
		client:     client,
		prefix:     prefix,
		maxEntries: int64(maxEntries),
		timeout:    2 * time.Second,
		now:        time.Now,
		log:        logger.Component("activity"),
	}
}

func (r *RedisLog) key(siteID string) string {
	return r.prefix + "activity:" + siteID
}

// Record pushes a onto the site's list. Failures are logged and dropped.
func (r *RedisLog) Record(ctx context.Context, a models.Activity) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	payload, err := json.Marshal(a)
	if err != nil {
		r.log.Warn().Err(err).Str("site_id", a.SiteID).Msg("Failed to encode activity")
		return
	}

	// recorded even when the caller's context is already done
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	key := r.key(a.SiteID)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, payload)
		p.LTrim(ctx, key, 0, r.maxEntries-1)
		return nil
	})
	if err != nil {
		r.log.Warn().Err(err).Str("site_id", a.SiteID).Str("type", string(a.Type)).Msg("Failed to record activity")
	}
}

// Recent returns up to limit entries for siteID, newest first
func (r *RedisLog) Recent(ctx context.Context, siteID string, limit int) ([]models.Activity, error) {
	if limit <= 0 || int64(limit) > r.maxEntries {
		limit = int(r.maxEntries)
	}
	raw, err := r.client.LRange(ctx, r.key(siteID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange error: %w", err)
	}

	out := make([]models.Activity, 0, len(raw))
	for _, item := range raw {
		var a models.Activity
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			r.log.Debug().Err(err).Msg("Skipping malformed activity entry")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Clear removes all activity lists under the prefix
func (r *RedisLog) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"activity:*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}
	}
	return nil
}

func (r *RedisLog) Close() error {
	return r.client.Close()
}
