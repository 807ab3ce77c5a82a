package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/entrhq/seedbank/pkg/dedup"
	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

// DefaultCleanupFactor is how many TTLs an archived seed must be old
// before cleanup removes it.
const DefaultCleanupFactor = 2.0

// Policy holds the store's tunables, read from policy.toml.
//
//	fresh_ratio    = 0.3333
//	cleanup_factor = 2.0
//	lock_timeout   = "5s"
//
//	[dedup]
//	compare_anchor = true
type Policy struct {
	FreshRatio    float64       `toml:"fresh_ratio"`
	CleanupFactor float64       `toml:"cleanup_factor"`
	LockTimeout   time.Duration `toml:"lock_timeout"`
	Dedup         DedupPolicy   `toml:"dedup"`
}

// DedupPolicy is the [dedup] table.
type DedupPolicy struct {
	CompareAnchor bool `toml:"compare_anchor"`
}

// DefaultPolicy returns the documented tunables.
func DefaultPolicy() Policy {
	return Policy{
		FreshRatio:    freshness.DefaultFreshRatio,
		CleanupFactor: DefaultCleanupFactor,
		LockTimeout:   filelock.DefaultTimeout,
		Dedup:         DedupPolicy{CompareAnchor: dedup.DefaultPolicy().CompareAnchor},
	}
}

// Validate checks the tunables are usable.
func (p Policy) Validate() error {
	if err := p.Freshness().Validate(); err != nil {
		return err
	}
	if p.CleanupFactor < 1 {
		return fmt.Errorf("cleanup_factor must be at least 1, got %v", p.CleanupFactor)
	}
	if p.LockTimeout <= 0 || p.LockTimeout > time.Minute {
		return fmt.Errorf("lock_timeout must be between 0 and 1m, got %v", p.LockTimeout)
	}
	return nil
}

// Freshness returns the classifier thresholds.
func (p Policy) Freshness() freshness.Policy {
	return freshness.Policy{FreshRatio: p.FreshRatio}
}

// DedupMatcher returns the dedup matching policy.
func (p Policy) DedupMatcher() dedup.Policy {
	return dedup.Policy{CompareAnchor: p.Dedup.CompareAnchor}
}

// LoadPolicy reads the policy file at path on top of the defaults. The
// returned Policy is always usable: a missing file gives the defaults, and
// a malformed or invalid file gives the defaults together with an error
// wrapping storeerr.ErrConfig for the caller to log.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	md, err := toml.DecodeFile(path, &p)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return DefaultPolicy(), fmt.Errorf("policy %s: %w: %v", path, storeerr.ErrConfig, err)
	}
	if err := p.Validate(); err != nil {
		return DefaultPolicy(), fmt.Errorf("policy %s: %w: %v", path, storeerr.ErrConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return p, fmt.Errorf("policy %s: %w: unknown keys %s", path, storeerr.ErrConfig, strings.Join(keys, ", "))
	}
	return p, nil
}
