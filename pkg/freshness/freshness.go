// Package freshness classifies a seed's age against its TTL.
//
// The tier is derived on every read and never stored:
//
//	age <  ttl*FreshRatio  -> fresh
//	age <  ttl             -> growing
//	age >= ttl             -> stale
package freshness

import (
	"fmt"
	"math"
	"time"
)

// Tier is the derived lifecycle stage of a seed.
type Tier string

const (
	TierFresh   Tier = "fresh"
	TierGrowing Tier = "growing"
	TierStale   Tier = "stale"
)

// DefaultFreshRatio is the share of the TTL during which a seed is fresh.
const DefaultFreshRatio = 1.0 / 3.0

// Policy holds the classification thresholds.
type Policy struct {
	// FreshRatio is in (0, 1]; a seed younger than ttl*FreshRatio is fresh.
	FreshRatio float64
}

// DefaultPolicy returns the documented thresholds.
func DefaultPolicy() Policy {
	return Policy{FreshRatio: DefaultFreshRatio}
}

// Validate reports whether the thresholds are usable.
func (p Policy) Validate() error {
	if p.FreshRatio <= 0 || p.FreshRatio > 1 {
		return fmt.Errorf("freshness: fresh_ratio must be in (0, 1], got %v", p.FreshRatio)
	}
	return nil
}

// Classify returns the tier of a seed created at createdAt with the given
// TTL, as seen at now. A creation time in the future (clock skew between
// processes) counts as age zero. A non-positive TTL is always stale.
func (p Policy) Classify(now, createdAt time.Time, ttlHours int) Tier {
	if ttlHours <= 0 {
		return TierStale
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	ttl := TTL(ttlHours)
	switch {
	case age >= ttl:
		return TierStale
	case age < Scale(ttl, p.FreshRatio):
		return TierFresh
	default:
		return TierGrowing
	}
}

// maxHours is the largest hour count a time.Duration can hold.
const maxHours = int(math.MaxInt64 / int64(time.Hour))

// TTL converts hours to a Duration, saturating instead of overflowing.
func TTL(hours int) time.Duration {
	switch {
	case hours <= 0:
		return 0
	case hours > maxHours:
		return math.MaxInt64
	}
	return time.Duration(hours) * time.Hour
}

// Scale multiplies d by factor, saturating at the largest Duration.
func Scale(d time.Duration, factor float64) time.Duration {
	f := float64(d) * factor
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= 0 {
		return 0
	}
	return time.Duration(math.Round(f))
}

// Classify applies DefaultPolicy.
func Classify(now, createdAt time.Time, ttlHours int) Tier {
	return DefaultPolicy().Classify(now, createdAt, ttlHours)
}

// Age returns how long ago createdAt was, clamped at zero.
func Age(now, createdAt time.Time) time.Duration {
	if d := now.Sub(createdAt); d > 0 {
		return d
	}
	return 0
}
