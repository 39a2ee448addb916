package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// DefaultTTL is how long cached check results live when no TTL is given
const DefaultTTL = time.Hour

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches conflict check results. Checks are pure functions of the
// request and the engine parameters, so a result stored under a request key
// stays valid until it expires.
type Client struct {
	client RedisClientInterface
	ttl    time.Duration
}

// New creates a new Redis client
func New(addr string, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func resultKey(requestKey string) string {
	return "check:" + requestKey
}

// StoreResult caches a completed check under its request key
func (c *Client) StoreResult(ctx context.Context, report *types.CheckReport) error {
	if report.RequestKey == "" {
		return fmt.Errorf("report %s has no request key", report.CheckID)
	}

	data, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal check report: %w", err)
	}

	return c.client.Set(ctx, resultKey(report.RequestKey), data, c.ttl).Err()
}

// GetResult returns the cached report for a request key, or nil when there
// is none. An entry that no longer decodes is evicted.
func (c *Client) GetResult(ctx context.Context, requestKey string) (*types.CheckReport, error) {
	data, err := c.client.Get(ctx, resultKey(requestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var report types.CheckReport
	if err := msgpack.Unmarshal(data, &report); err != nil {
		if delErr := c.DeleteResult(ctx, requestKey); delErr != nil {
			return nil, fmt.Errorf("failed to unmarshal cached result: %w (evict: %v)", err, delErr)
		}
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return &report, nil
}

// DeleteResult removes a cached result
func (c *Client) DeleteResult(ctx context.Context, requestKey string) error {
	return c.client.Del(ctx, resultKey(requestKey)).Err()
}
