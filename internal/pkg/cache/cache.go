package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// Client is the small key/value surface the service needs from a cache.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value. A zero ttl never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Driver   string
	Host     string
	Port     string
	Password string
	DB       int
}

type redisClient struct {
	rdb *redis.Client
}

// Connect opens a client to a Redis compatible server. An unreachable server
// is logged, not fatal: cache reads then miss and callers fall back to
// storage.
func Connect(cfg Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		fiberlog.Warnf("Could not connect to cache at %s:%s: %v", cfg.Host, cfg.Port, err)
	} else {
		fiberlog.Infof("Successfully connected to cache: %s", pong)
	}
	return rdb
}

func NewRedis(cfg Config) Client {
	return WrapRedis(Connect(cfg))
}

// WrapRedis adapts an existing connection, so it can be shared with the job
// queue.
func WrapRedis(rdb *redis.Client) Client {
	return &redisClient{rdb: rdb}
}

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *redisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *redisClient) Close() error {
	return c.rdb.Close()
}
