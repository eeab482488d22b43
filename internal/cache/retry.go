package cache

import (
	"math/rand"
	"strings"
	"time"
)

// Under concurrent task completion, WAL-mode SQLite can still produce
// transient errors (SQLITE_BUSY, SQLITE_LOCKED, short WAL reads). The
// busy_timeout pragma absorbs most of them at the connection level; the
// rest get a short application-level retry with jittered backoff.

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func retryOp(cfg retryConfig, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransientSQLiteErr(err) || attempt >= cfg.maxRetries {
			return err
		}
		delay := cfg.baseDelay << attempt
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
		// Jitter avoids lock-step retries when several tasks collide.
		delay += time.Duration(rand.Int63n(int64(cfg.baseDelay)))
		time.Sleep(delay)
	}
}

// isTransientSQLiteErr matches the transient error shapes emitted by
// modernc.org/sqlite under contention.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",   // SQLITE_BUSY code
		"(6)",   // SQLITE_LOCKED code
		"(522)", // SQLITE_IOERR_SHORT_READ code
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
