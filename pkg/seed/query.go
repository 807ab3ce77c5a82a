package seed

import (
	"context"
	"sort"

	"github.com/gobwas/glob"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

// Matches reports whether a seed in the given tier passes filter.
//
//	active   status active, tier fresh or growing
//	outdated status active, tier stale
//	archived status archived, any tier
//	all      everything
func Matches(filter config.Filter, status Status, tier freshness.Tier) bool {
	switch filter {
	case config.FilterActive:
		return status == StatusActive && tier != freshness.TierStale
	case config.FilterOutdated:
		return status == StatusActive && tier == freshness.TierStale
	case config.FilterArchived:
		return status == StatusArchived
	case config.FilterAll:
		return true
	default:
		return false
	}
}

// Query selects seeds for List.
type Query struct {
	Filter config.Filter

	// SessionID keeps only seeds written in that session when set.
	SessionID string

	// AnchorGlob keeps only seeds with an anchor path matching it, with
	// "/" as the separator so "pkg/**" spans directories.
	AnchorGlob string
}

// Listing is the result of a query.
type Listing struct {
	Seeds []*Seed

	// Corrupt lists the records skipped because they failed to load.
	Corrupt []*storeerr.CorruptEntryError
}

// List returns the seeds passing filter, most recently created first.
func (s *Store) List(ctx context.Context, filter config.Filter) ([]*Seed, error) {
	listing, err := s.Query(ctx, Query{Filter: filter})
	if err != nil {
		return nil, err
	}
	return listing.Seeds, nil
}

// Query returns the seeds selected by q, most recently created first with
// ties broken by id. It takes no lock.
func (s *Store) Query(_ context.Context, q Query) (*Listing, error) {
	if q.Filter == "" {
		q.Filter = config.FilterAll
	}
	if _, err := config.ParseFilter(string(q.Filter)); err != nil {
		return nil, err
	}
	var anchorGlob glob.Glob
	if q.AnchorGlob != "" {
		g, err := glob.Compile(q.AnchorGlob, '/')
		if err != nil {
			return nil, storeerr.Invalid("anchor", "bad glob %q: %v", q.AnchorGlob, err)
		}
		anchorGlob = g
	}

	seeds, corrupt, err := s.scan()
	if err != nil {
		return nil, err
	}
	if len(corrupt) > 0 {
		s.log.Warnf("listing skipped %d corrupt seed file(s)", len(corrupt))
	}

	now := timeNow()
	out := make([]*Seed, 0, len(seeds))
	for _, seed := range seeds {
		tier := s.fresh.Classify(now, seed.CreatedAt, seed.TTLHours)
		if !Matches(q.Filter, seed.Status, tier) {
			continue
		}
		if q.SessionID != "" && seed.SessionID != q.SessionID {
			continue
		}
		if anchorGlob != nil && !anyAnchorMatches(anchorGlob, seed.Anchors) {
			continue
		}
		out = append(out, seed)
	}
	sortNewestFirst(out)
	return &Listing{Seeds: out, Corrupt: corrupt}, nil
}

func anyAnchorMatches(g glob.Glob, anchors []Anchor) bool {
	for _, a := range anchors {
		if g.Match(a.Path) {
			return true
		}
	}
	return false
}

func sortNewestFirst(seeds []*Seed) {
	sort.SliceStable(seeds, func(i, j int) bool {
		a, b := seeds[i], seeds[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
