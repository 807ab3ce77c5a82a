// Package filelock guards on-disk state shared by independent processes.
//
// Mutators take an exclusive advisory lock for the whole read-modify-write
// cycle and publish new state with WriteFileAtomic, so the canonical file
// only ever changes through a single rename. Readers never lock; they see
// either the previous or the next complete file.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/entrhq/seedbank/pkg/logging"
)

const (
	// DefaultTimeout bounds how long an interactive caller waits for the lock.
	DefaultTimeout = 5 * time.Second

	// DefaultRetryDelay is the polling interval while the lock is contended.
	DefaultRetryDelay = 25 * time.Millisecond
)

var (
	// ErrTimeout is returned when the lock could not be acquired in time.
	ErrTimeout = errors.New("filelock: lock acquisition timed out")

	// ErrNested is returned when Do is called from inside a callback of the
	// same Guard.
	ErrNested = errors.New("filelock: nested lock acquisition")
)

// Guard serializes mutators of one resource across processes. A Guard may
// be shared by goroutines; they queue for it under the same timeout as
// other processes.
type Guard struct {
	path       string
	timeout    time.Duration
	retryDelay time.Duration
	log        logging.Leveled

	// sem admits one goroutine at a time to the file lock.
	sem chan struct{}
}

// heldKey marks a context derived inside Do for one Guard.
type heldKey struct{ g *Guard }

// Option configures a Guard.
type Option func(*Guard)

// WithTimeout sets the acquisition bound. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRetryDelay sets the polling interval used while waiting.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

// WithLogger attaches a logger for contention diagnostics.
func WithLogger(l logging.Leveled) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// New creates a Guard backed by the lock file at path. The lock file is
// created on first use and never removed; its content is irrelevant.
func New(path string, opts ...Option) *Guard {
	g := &Guard{
		path:       path,
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		log:        logging.Nop(),
		sem:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the lock file path.
func (g *Guard) Path() string {
	return g.path
}

// Timeout returns the configured acquisition bound.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}

// Do acquires the lock, runs fn and releases the lock. fn receives a
// context marking the Guard as held; calling Do with that context on the
// same Guard fails with ErrNested instead of deadlocking.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(heldKey{g}).(bool); held {
		return ErrNested
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("filelock: acquire %s: %w", g.path, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	select {
	case g.sem <- struct{}{}:
	case <-waitCtx.Done():
		return g.waitFailed(ctx)
	}
	defer func() { <-g.sem }()

	lock := flock.New(g.path)
	locked, err := lock.TryLockContext(waitCtx, g.retryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		_ = lock.Close()
		return fmt.Errorf("filelock: acquire %s: %w", g.path, err)
	}
	if !locked {
		_ = lock.Close()
		return g.waitFailed(ctx)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			g.log.Errorf("release lock %s: %v", g.path, uerr)
		}
	}()

	if waited := time.Since(start); waited > g.retryDelay {
		g.log.Debugf("lock %s acquired after %s", g.path, waited)
	}
	return fn(context.WithValue(ctx, heldKey{g}, true))
}

// waitFailed reports why acquisition stopped: the caller's context ended
// or the timeout elapsed.
func (g *Guard) waitFailed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("filelock: acquire %s: %w", g.path, err)
	}
	g.log.Warnf("lock %s not acquired after %s", g.path, g.timeout)
	return fmt.Errorf("%w: %s after %s", ErrTimeout, g.path, g.timeout)
}

// WriteFileAtomic writes data to a temporary file in the target directory,
// syncs it and renames it over path. A crash at any point leaves either the
// old file or the new file, never a truncated one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, base := splitPath(path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("filelock: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("filelock: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("filelock: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("filelock: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("filelock: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // best-effort cleanup
		return fmt.Errorf("filelock: atomic rename %s: %w", path, err)
	}
	return nil
}

// ReadFileRetry reads path and hands the bytes to parse. If parse fails the
// read is retried once after delay, covering a concurrent writer's replace.
// Errors from os.ReadFile are returned unwrapped so callers can test for
// os.ErrNotExist.
func ReadFileRetry(path string, delay time.Duration, parse func([]byte) error) error {
	var perr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if perr = parse(b); perr == nil {
			return nil
		}
	}
	return perr
}
