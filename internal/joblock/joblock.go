// Package joblock prevents concurrent execution of the same named job. It
// layers two locks: an in-process mutex that rejects a second caller
// immediately, and an optional Postgres advisory lock that extends the same
// guarantee across every process sharing the database.
package joblock

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"manifeed/internal/domain/entity"
)

// Named lock identifiers, reserved for pg_advisory_lock. A job name absent
// from this table is still guarded in-process, just not cross-process.
const (
	LockFeedEnabled    = "rss_patch_feed_enabled"
	LockCompanyEnabled = "rss_patch_company_enabled"
	LockSync           = "rss_sync"
)

var pgLockIDs = map[string]int64{
	LockFeedEnabled:    83001,
	LockCompanyEnabled: 83002,
	LockSync:           83003,
}

var (
	localGuard sync.Mutex
	localLocks = map[string]*sync.Mutex{}
)

func localLock(name string) *sync.Mutex {
	localGuard.Lock()
	defer localGuard.Unlock()
	lock, ok := localLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		localLocks[name] = lock
	}
	return lock
}

// Release ends the hold acquired by Acquire.
type Release func()

// Acquire takes the named lock for the duration of the caller's work. db may
// be nil, in which case only the in-process lock applies. Returns
// entity.ErrJobAlreadyRunning if the job is already running anywhere this
// lock can see.
func Acquire(ctx context.Context, db *sql.DB, name string) (Release, error) {
	lock := localLock(name)
	if !lock.TryLock() {
		return nil, errors.Join(entity.ErrJobAlreadyRunning, errors.New(name))
	}

	lockID, hasPGLock := pgLockIDs[name]
	if !hasPGLock || db == nil {
		return func() { lock.Unlock() }, nil
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		// Fail open on connection acquisition: the in-process lock still
		// holds, cross-process exclusion is simply unavailable here.
		return func() { lock.Unlock() }, nil
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Close()
		return func() { lock.Unlock() }, nil
	}
	if !acquired {
		conn.Close()
		lock.Unlock()
		return nil, errors.Join(entity.ErrJobAlreadyRunning, errors.New(name))
	}

	return func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockID)
		conn.Close()
		lock.Unlock()
	}, nil
}
