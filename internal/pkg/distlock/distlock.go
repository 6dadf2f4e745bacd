// Package distlock keeps two operators from processing the down-hours sheet
// at the same time.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

var (
	// ErrLocked is returned by WithLock when another holder owns the lock.
	ErrLocked = errors.New("lock is held by another run")
	// ErrLockLost means the lease expired or was taken over while a run held it.
	ErrLockLost = errors.New("run lock lost")
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a distributed lock using the best available backend.
// If redisClient is non-nil, uses Redis. Otherwise, if db is non-nil, falls
// back to PostgreSQL advisory locks. With neither, the lock is a no-op.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return noopLock{}
}

// WithLock runs fn while holding l. It returns ErrLocked without calling fn
// when the lock is taken. If a renewable lease is lost while fn runs, the
// context passed to fn is cancelled and WithLock returns ErrLockLost.
func WithLock(ctx context.Context, l DistLock, fn func(ctx context.Context) error) error {
	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		// Release with a fresh context so a cancelled run still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx)
	}()
	r, ok := l.(renewer)
	if !ok {
		return fn(ctx)
	}
	runCtx, stop := keepAlive(ctx, r)
	defer stop()
	err = fn(runCtx)
	if cause := context.Cause(runCtx); errors.Is(cause, ErrLockLost) {
		if err == nil {
			return cause
		}
		return fmt.Errorf("%w (run stopped: %v)", cause, err)
	}
	return err
}

// renewer is a lock whose lease runs out unless it is extended. A run
// waiting on safe-mode confirmations can outlive the lease.
type renewer interface {
	Extend(ctx context.Context, ttl time.Duration) error
	TTL() time.Duration
}

// keepAlive extends the lease every third of its TTL until stop is called.
// The returned context is cancelled with ErrLockLost once the lease is
// owned by someone else; transient Redis errors are only logged.
func keepAlive(ctx context.Context, r renewer) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	ttl := r.TTL()
	if ttl <= 0 {
		return ctx, func() { cancel(nil) }
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := r.Extend(ctx, ttl)
				switch {
				case errors.Is(err, ErrLockLost):
					logger.Error("distlock: run lock lost, stopping run", "error", err)
					cancel(err)
					return
				case err != nil && ctx.Err() == nil:
					logger.Warn("distlock: extending run lock", "error", err)
				}
			}
		}
	}()
	return ctx, func() {
		cancel(nil)
		<-done
	}
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// Uses pg_try_advisory_lock / pg_advisory_unlock which are session-scoped.
// The lock is released if the DB connection drops, so a crashed run never
// leaves the sheet locked.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock on a dedicated connection so
// the matching unlock runs in the same session.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
