// Package redis wraps the go-redis client for the one coordination job
// this service has: making sure concurrent instances never poll the same
// partner's SFTP inbox at the same time.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client wraps the Redis client used for poll-tick locks.
type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient connects and verifies the connection with a bounded ping.
func NewClient(cfg Config, logger ectologger.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &Client{rdb: rdb, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PollLocker serializes partner polls across instances with SET NX keys.
type PollLocker struct {
	client *Client
	token  string // instance identity, baked into every lock value
}

// NewPollLocker creates a locker whose lock values identify this instance.
func NewPollLocker(client *Client, instanceID string) *PollLocker {
	return &PollLocker{client: client, token: instanceID}
}

// releaseScript deletes the key only when this instance still owns it, so
// an expired-and-reacquired lock is never released out from under the new
// owner.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// WithPollLock runs fn while holding the partner's poll lock. When another
// instance holds it, ErrLockNotAcquired is returned and fn never runs; a
// scheduler tick treats that as a clean skip. The TTL bounds how long a
// crashed instance can block the partner's polling.
func (l *PollLocker) WithPollLock(ctx context.Context, partnerID string, ttl time.Duration, fn func() error) error {
	key := "sedge:poll:" + partnerID

	ok, err := l.client.rdb.SetNX(ctx, key, l.token, ttl).Result()
	if err != nil {
		return fmt.Errorf("acquiring poll lock for partner %s: %w", partnerID, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	l.client.logger.WithContext(ctx).Debugf("Acquired poll lock for partner %s", partnerID)
	defer func() {
		if _, err := releaseScript.Run(ctx, l.client.rdb, []string{key}, l.token).Int64(); err != nil {
			l.client.logger.WithContext(ctx).WithError(err).Warnf("Failed to release poll lock for partner %s", partnerID)
		}
	}()

	return fn()
}
