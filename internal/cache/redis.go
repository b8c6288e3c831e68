// Package cache stores traced regions per mask in Redis so that re-running a
// conversion over an unchanged directory skips tracing.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"mask2coco/pkg/geometry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Region is one traced, non-degenerate region of a mask.
type Region struct {
	CategoryID int              `json:"category_id"`
	Polygon    geometry.Polygon `json:"polygon"`
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis caches region lists under "mask2coco:regions:<key>".
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis returns nil when no address is configured.
func NewRedis(opts Options, log *zap.Logger) *Redis {
	if opts.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &Redis{client: client, ttl: opts.TTL, log: log}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Key combines the mask digest with whatever else decides the regions: the
// palette contents and the tracer.
func Key(digest, paletteFingerprint, tracer string) string {
	sum := md5.Sum([]byte(paletteFingerprint))
	return "mask2coco:regions:" + tracer + ":" + digest + ":" + hex.EncodeToString(sum[:8])
}

// GetRegions returns ok=false on a miss.
func (r *Redis) GetRegions(ctx context.Context, key string) ([]Region, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		r.log.Warn("failed to unmarshal cached regions",
			zap.String("key", key), zap.Error(err))
		return nil, false, err
	}

	return regions, true, nil
}

// SetRegions stores regions under key.
func (r *Redis) SetRegions(ctx context.Context, key string, regions []Region) error {
	data, err := json.Marshal(regions)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, r.ttl).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
