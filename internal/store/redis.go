package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces canvas state inside the shared store; the same redis
// instance also holds short-lived auth tokens owned by other services
const keyPrefix = "canvas:"

// Config holds redis connection settings
type Config struct {
	Addr        string        `json:"addr"`
	Password    string        `json:"password"`
	DB          int           `json:"db"`
	DialTimeout time.Duration `json:"dial_timeout"`
}

// DefaultConfig returns production-ready redis configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:        "localhost:6379",
		DB:          0,
		DialTimeout: 5 * time.Second,
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("redis address cannot be empty")
	}
	if c.DB < 0 {
		return errors.New("redis DB index cannot be negative")
	}
	if c.DialTimeout <= 0 {
		return errors.New("redis dial timeout must be positive")
	}
	return nil
}

// RedisStore implements interfaces.StateStore backed by redis
// ARCHITECTURAL DISCOVERY: The store is the only durable collaborator of the
// synchronization core; everything else is rebuilt from scratch on restart
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies connectivity
// FUNCTIONAL DISCOVERY: An unreachable store at boot is surfaced as an error
// so the process can refuse to serve partial functionality silently
func NewRedisStore(cfg *Config) (*RedisStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis configuration: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

// Get returns the latest state blob for a canvas
// FUNCTIONAL DISCOVERY: redis.Nil is the absent marker, translated to
// (nil, false, nil) so callers can tell "no prior writes" from a store failure
func (s *RedisStore) Get(ctx context.Context, canvasID string) ([]byte, bool, error) {
	blob, err := s.client.Get(ctx, keyPrefix+canvasID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed for canvas %s: %w", canvasID, err)
	}
	return blob, true, nil
}

// Set replaces the state blob for a canvas; zero TTL means no expiry
func (s *RedisStore) Set(ctx context.Context, canvasID string, blob []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+canvasID, blob, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed for canvas %s: %w", canvasID, err)
	}
	return nil
}

// Canvases lists the canvas IDs currently holding state
// TECHNICAL DISCOVERY: SCAN instead of KEYS keeps the sweep from blocking
// the shared store under load
func (s *RedisStore) Canvases(ctx context.Context) ([]string, error) {
	var ids []string

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}

	return ids, nil
}

// HealthCheck verifies store connectivity
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close releases the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
