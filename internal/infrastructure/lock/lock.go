// Package lock serializes work per conversation, in process or across
// replicas through Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/conversation"
)

// ErrTimeout is returned when the lock could not be taken in time.
var ErrTimeout = errors.New("timed out waiting for conversation lock")

// Local is a keyed mutex for single-replica deployments.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
	wait  time.Duration
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates a keyed mutex. wait bounds how long Lock blocks; zero
// waits until ctx ends.
func NewLocal(wait time.Duration) *Local {
	return &Local{locks: make(map[string]*entry), wait: wait}
}

// Lock blocks until key is free, ctx ends or the wait elapses.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	case <-timeout:
		l.release(key, e)
		return nil, ErrTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Redis is a redsync-backed distributed lock.
type Redis struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewRedis connects to redisURL and verifies it answers.
func NewRedis(ctx context.Context, redisURL string, ttl, wait time.Duration, log zerolog.Logger) (*Redis, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url must be provided")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisWithClient(client, ttl, wait, log), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, ttl, wait time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		wait:   wait,
		log:    log.With().Str("component", "conversation-lock").Logger(),
	}
}

const retryDelay = 100 * time.Millisecond

// Lock takes the distributed mutex for key. The returned func releases it
// with a fresh context so a cancelled request still unlocks.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	tries := int(r.wait/retryDelay) + 1
	mutex := r.rs.NewMutex("reno:lock:"+key,
		redsync.WithExpiry(r.ttl),
		redsync.WithTries(tries),
		redsync.WithRetryDelay(retryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, redsync.ErrFailed) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if ok, err := mutex.UnlockContext(unlockCtx); err != nil || !ok {
				r.log.Warn().Err(err).Str("key", key).Msg("conversation lock release failed, it will expire")
			}
		})
	}, nil
}

// Ping reports whether Redis answers.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var (
	_ conversation.Locker = (*Local)(nil)
	_ conversation.Locker = (*Redis)(nil)
)
