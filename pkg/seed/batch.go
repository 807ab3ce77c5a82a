package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

// tempMinAge protects in-flight writes of live processes from the sweep.
const tempMinAge = time.Minute

// BatchResult lists the seeds a bulk operation changed.
//
// Bulk operations take the lock once per seed, never across the batch. If
// one fails, the seeds in Applied are durably changed, the rest are
// untouched, and the error is returned alongside the partial result.
type BatchResult struct {
	Applied []string `json:"applied" yaml:"applied"`

	// TempFilesRemoved counts crashed-writer leftovers removed by Cleanup.
	TempFilesRemoved int `json:"temp_files_removed,omitempty" yaml:"temp_files_removed,omitempty"`
}

// snapshot lists the ids of seeds passing filter without locking.
func (s *Store) snapshot(ctx context.Context, filter config.Filter) ([]string, error) {
	seeds, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(seeds))
	for i, seed := range seeds {
		ids[i] = seed.ID
	}
	return ids, nil
}

// archiveEach archives ids one lock cycle at a time. Seeds deleted by
// another process since the snapshot are skipped.
func (s *Store) archiveEach(ctx context.Context, ids []string) (*BatchResult, error) {
	res := &BatchResult{}
	for _, id := range ids {
		_, changed, err := s.setStatus(ctx, id, StatusArchived)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("archive %s: %w", id, err)
		}
		if changed {
			res.Applied = append(res.Applied, id)
		}
	}
	return res, nil
}

// ArchiveAll archives every active seed, whatever its tier.
func (s *Store) ArchiveAll(ctx context.Context) (*BatchResult, error) {
	seeds, err := s.List(ctx, config.FilterAll)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, seed := range seeds {
		if seed.Status != StatusArchived {
			ids = append(ids, seed.ID)
		}
	}
	return s.archiveEach(ctx, ids)
}

// ArchiveOutdated archives every active seed whose tier is stale.
func (s *Store) ArchiveOutdated(ctx context.Context) (*BatchResult, error) {
	ids, err := s.snapshot(ctx, config.FilterOutdated)
	if err != nil {
		return nil, err
	}
	return s.archiveEach(ctx, ids)
}

// deleteEach removes each id for which match still holds under the lock.
func (s *Store) deleteEach(ctx context.Context, ids []string, match func(*Seed) bool) (*BatchResult, error) {
	res := &BatchResult{}
	for _, id := range ids {
		deleted, err := s.deleteIf(ctx, id, match)
		if errors.Is(err, storeerr.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("delete %s: %w", id, err)
		}
		if deleted {
			res.Applied = append(res.Applied, id)
		}
	}
	return res, nil
}

func isArchived(seed *Seed) bool {
	return seed != nil && seed.Status == StatusArchived
}

// DeleteArchived removes every archived seed.
func (s *Store) DeleteArchived(ctx context.Context) (*BatchResult, error) {
	ids, err := s.snapshot(ctx, config.FilterArchived)
	if err != nil {
		return nil, err
	}
	return s.deleteEach(ctx, ids, isArchived)
}

// CleanupEligible reports whether cleanup would remove seed at now: it
// must be archived and at least cleanupFactor TTLs old. Active seeds are
// never eligible, however stale.
func CleanupEligible(seed *Seed, now time.Time, cleanupFactor float64) bool {
	if !isArchived(seed) {
		return false
	}
	if seed.TTLHours <= 0 {
		return false
	}
	bound := freshness.Scale(freshness.TTL(seed.TTLHours), cleanupFactor)
	return freshness.Age(now, seed.CreatedAt) >= bound
}

// Cleanup prunes long-stale archived seeds and removes temp files left by
// writers that crashed before publishing.
func (s *Store) Cleanup(ctx context.Context) (*BatchResult, error) {
	res := &BatchResult{}
	err := s.guard.Do(ctx, func(context.Context) error {
		n, err := filelock.SweepTemp(s.dir, tempMinAge)
		res.TempFilesRemoved = n
		return err
	})
	if err != nil {
		return res, err
	}
	if res.TempFilesRemoved > 0 {
		s.log.Infof("cleanup removed %d stale temp file(s)", res.TempFilesRemoved)
	}

	ids, err := s.snapshot(ctx, config.FilterArchived)
	if err != nil {
		return res, err
	}
	eligible := func(seed *Seed) bool {
		return CleanupEligible(seed, timeNow(), s.cleanupFactor)
	}
	deleted, err := s.deleteEach(ctx, ids, eligible)
	res.Applied = deleted.Applied
	return res, err
}
