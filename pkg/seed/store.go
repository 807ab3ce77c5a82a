package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/dedup"
	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/logging"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

const (
	fileExt = ".md"

	// readRetryDelay is the pause before re-reading a record that failed
	// to parse while a writer may have been replacing it.
	readRetryDelay = 20 * time.Millisecond
)

var timeNow = time.Now // injected for testability

// Options wires a Store.
type Options struct {
	// Dir holds the seed files. It is created if missing.
	Dir string

	// Guard serializes mutations of Dir across processes.
	Guard *filelock.Guard

	// Settings supplies the default TTL for new seeds.
	Settings *config.SettingsStore

	// Policy holds the freshness, dedup and cleanup tunables. The zero
	// value means config.DefaultPolicy().
	Policy config.Policy

	// SessionID is stamped on new seeds. It must already be validated.
	SessionID string

	Logger logging.Leveled
}

// Store is the file-backed seed store.
type Store struct {
	dir           string
	guard         *filelock.Guard
	settings      *config.SettingsStore
	fresh         freshness.Policy
	dedup         dedup.Policy
	cleanupFactor float64
	session       string
	log           logging.Leveled
}

// New opens the store in opts.Dir.
func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("seed: store directory is required")
	}
	if opts.Guard == nil || opts.Settings == nil {
		return nil, fmt.Errorf("seed: guard and settings are required")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("seed: init directory %s: %w", opts.Dir, err)
	}
	policy := opts.Policy
	if policy == (config.Policy{}) {
		policy = config.DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("seed: %w: %v", storeerr.ErrConfig, err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		dir:           opts.Dir,
		guard:         opts.Guard,
		settings:      opts.Settings,
		fresh:         policy.Freshness(),
		dedup:         policy.DedupMatcher(),
		cleanupFactor: policy.CleanupFactor,
		session:       opts.SessionID,
		log:           log,
	}, nil
}

// Dir returns the directory holding the seed files.
func (s *Store) Dir() string {
	return s.dir
}

// Tier classifies seed at the current time.
func (s *Store) Tier(seed *Seed) freshness.Tier {
	return s.fresh.Classify(timeNow(), seed.CreatedAt, seed.TTLHours)
}

// pathForID maps an id to its file. Empty ids and ids that could name a
// path outside the store are invalid; any other id that is not shaped like
// a seed id cannot exist, so it is not found.
func (s *Store) pathForID(id string) (string, error) {
	if id == "" {
		return "", storeerr.Invalid("id", "must not be empty")
	}
	if strings.ContainsAny(id, "/\\\x00\r\n") || strings.Contains(id, "..") {
		return "", storeerr.Invalid("id", "%q is not a seed id", id)
	}
	if !ValidID(id) {
		return "", fmt.Errorf("seed %s: %w", id, storeerr.ErrNotFound)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

// read loads one record, retrying once on a parse failure.
func (s *Store) read(id string) (*Seed, error) {
	path, err := s.pathForID(id)
	if err != nil {
		return nil, err
	}
	return s.readFile(path, id)
}

func (s *Store) readFile(path, wantID string) (*Seed, error) {
	var seed *Seed
	err := filelock.ReadFileRetry(path, readRetryDelay, func(b []byte) error {
		parsed, err := Parse(b)
		if err != nil {
			return err
		}
		if err := validateRecord(parsed); err != nil {
			return err
		}
		if parsed.ID != wantID {
			return fmt.Errorf("id %q does not match file name", parsed.ID)
		}
		seed = parsed
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("seed %s: %w", wantID, storeerr.ErrNotFound)
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	if err != nil {
		return nil, &storeerr.CorruptEntryError{Path: path, Err: err}
	}
	return seed, nil
}

// scan loads every record in the directory. Corrupt records are logged and
// returned separately; records that vanish mid-scan are ignored.
func (s *Store) scan() ([]*Seed, []*storeerr.CorruptEntryError, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("seed: list %s: %w", s.dir, err)
	}
	var (
		seeds   []*Seed
		corrupt []*storeerr.CorruptEntryError
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != fileExt || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		seed, err := s.readFile(filepath.Join(s.dir, name), id)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		var cerr *storeerr.CorruptEntryError
		if errors.As(err, &cerr) {
			s.log.Warnf("skipping corrupt seed file %s: %v", cerr.Path, cerr.Err)
			corrupt = append(corrupt, cerr)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		seeds = append(seeds, seed)
	}
	return seeds, corrupt, nil
}

// save publishes seed atomically. Callers hold the guard.
func (s *Store) save(seed *Seed) error {
	path, err := s.pathForID(seed.ID)
	if err != nil {
		return err
	}
	b, err := Serialize(seed)
	if err != nil {
		return err
	}
	return filelock.WriteFileAtomic(path, b, 0o600)
}

// WriteOptions adjusts Write.
type WriteOptions struct {
	// Force skips the duplicate check.
	Force bool
}

// Write validates draft, rejects it if it duplicates an active seed, and
// stores it with a fresh id, the current time and the default TTL.
func (s *Store) Write(ctx context.Context, draft Draft, opts WriteOptions) (*Seed, error) {
	d, err := normalizeDraft(draft)
	if err != nil {
		return nil, err
	}
	ttl, err := s.settings.TTLHours()
	if err != nil {
		return nil, err
	}

	var created *Seed
	err = s.guard.Do(ctx, func(context.Context) error {
		if !opts.Force {
			existing, _, err := s.scan()
			if err != nil {
				return err
			}
			var active []dedup.Entry
			for _, e := range existing {
				if e.Status == StatusActive {
					active = append(active, e.dedupEntry())
				}
			}
			candidate := dedup.Entry{Title: d.Title, PrimaryPath: d.Anchors[0].Path}
			if id, dup := s.dedup.FindDuplicate(candidate, active); dup {
				return &storeerr.DuplicateError{ExistingID: id}
			}
		}

		seed := &Seed{
			ID:        NewID(),
			Title:     d.Title,
			Rationale: d.Rationale,
			Anchors:   d.Anchors,
			CreatedAt: timeNow().UTC(),
			TTLHours:  ttl,
			Status:    StatusActive,
			SessionID: s.session,
		}
		path, err := s.pathForID(seed.ID)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("seed: id collision on %s", seed.ID)
		}
		if err := s.save(seed); err != nil {
			return err
		}
		created = seed
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("wrote seed %s %q", created.ID, created.Title)
	return created.clone(), nil
}

// Get returns one seed.
func (s *Store) Get(_ context.Context, id string) (*Seed, error) {
	return s.read(id)
}

// update runs fn on one seed inside its own lock cycle and saves the
// result if fn reports a change.
func (s *Store) update(ctx context.Context, id string, fn func(*Seed) (bool, error)) (*Seed, bool, error) {
	if _, err := s.pathForID(id); err != nil {
		return nil, false, err
	}
	var (
		out     *Seed
		changed bool
	)
	err := s.guard.Do(ctx, func(context.Context) error {
		seed, err := s.read(id)
		if err != nil {
			return err
		}
		changed, err = fn(seed)
		if err != nil {
			return err
		}
		if changed {
			if err := s.save(seed); err != nil {
				return err
			}
		}
		out = seed
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

func (s *Store) setStatus(ctx context.Context, id string, status Status) (*Seed, bool, error) {
	seed, changed, err := s.update(ctx, id, func(seed *Seed) (bool, error) {
		if seed.Status == status {
			return false, nil
		}
		seed.Status = status
		return true, nil
	})
	if err == nil && changed {
		s.log.Infof("seed %s is now %s", id, status)
	}
	return seed, changed, err
}

// Archive marks a seed archived. Archiving an archived seed is a no-op.
func (s *Store) Archive(ctx context.Context, id string) (*Seed, error) {
	seed, _, err := s.setStatus(ctx, id, StatusArchived)
	return seed, err
}

// Unarchive marks a seed active again. Unarchiving an active seed is a no-op.
func (s *Store) Unarchive(ctx context.Context, id string) (*Seed, error) {
	seed, _, err := s.setStatus(ctx, id, StatusActive)
	return seed, err
}

// Conclude attaches or replaces the seed's conclusion.
func (s *Store) Conclude(ctx context.Context, id, summary, resultPath string) (*Seed, error) {
	summary = strings.TrimSpace(summary)
	resultPath = strings.TrimSpace(resultPath)
	if summary == "" {
		return nil, storeerr.Invalid("summary", "must not be empty")
	}
	if len(summary) > MaxSummaryLength {
		return nil, storeerr.Invalid("summary", "longer than %d characters", MaxSummaryLength)
	}
	if strings.ContainsAny(resultPath, "\x00\r\n") {
		return nil, storeerr.Invalid("result_path", "contains control characters")
	}

	seed, _, err := s.update(ctx, id, func(seed *Seed) (bool, error) {
		seed.Conclusion = &Conclusion{
			Summary:     summary,
			ResultPath:  resultPath,
			ConcludedAt: timeNow().UTC(),
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("concluded seed %s", id)
	return seed, nil
}

// Delete removes a seed permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.deleteIf(ctx, id, func(*Seed) bool { return true })
	return err
}

// deleteIf removes the seed inside its own lock cycle when match returns
// true for its current state. match receives nil for a corrupt record, so
// only a predicate accepting nil can remove one.
func (s *Store) deleteIf(ctx context.Context, id string, match func(*Seed) bool) (bool, error) {
	path, err := s.pathForID(id)
	if err != nil {
		return false, err
	}
	deleted := false
	err = s.guard.Do(ctx, func(context.Context) error {
		seed, err := s.read(id)
		var cerr *storeerr.CorruptEntryError
		switch {
		case errors.As(err, &cerr):
			if !match(nil) {
				return err
			}
		case err != nil:
			return err
		case !match(seed):
			return nil
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("seed %s: %w", id, storeerr.ErrNotFound)
			}
			return fmt.Errorf("seed: delete %s: %w", path, err)
		}
		deleted = true
		return nil
	})
	if err == nil && deleted {
		s.log.Infof("deleted seed %s", id)
	}
	return deleted, err
}
