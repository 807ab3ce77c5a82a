// Package seed is the lifecycle store for seeds: short observations an
// assistant records during a session for later review and expansion.
//
// Each seed is one Markdown file with YAML front-matter under the store
// directory. Independent processes share the directory; every mutation is
// a locked read-modify-write that publishes files by atomic rename, and
// reads never lock. Records that fail validation on load are skipped and
// reported, never fatal to the store.
package seed

import (
	"time"

	"github.com/entrhq/seedbank/pkg/dedup"
)

// Status is the review state of a seed. It is orthogonal to the derived
// freshness tier.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Anchor points a seed at a source location. Context texts are optional
// markers around the region of interest.
type Anchor struct {
	Path         string `yaml:"path" json:"path"`
	ContextStart string `yaml:"context_start_text,omitempty" json:"context_start_text,omitempty"`
	ContextEnd   string `yaml:"context_end_text,omitempty" json:"context_end_text,omitempty"`
}

// Conclusion is attached by a thought agent once it has investigated the
// seed. Concluding again replaces it.
type Conclusion struct {
	Summary     string    `yaml:"summary" json:"summary"`
	ResultPath  string    `yaml:"result_path,omitempty" json:"result_path,omitempty"`
	ConcludedAt time.Time `yaml:"concluded_at" json:"concluded_at"`
}

// Seed is a stored observation. ID, CreatedAt and TTLHours never change
// after creation; only Status and Conclusion are mutated.
type Seed struct {
	ID         string      `yaml:"id" json:"id"`
	Title      string      `yaml:"title" json:"title"`
	Anchors    []Anchor    `yaml:"anchors" json:"anchors"`
	CreatedAt  time.Time   `yaml:"created_at" json:"created_at"`
	TTLHours   int         `yaml:"ttl_hours" json:"ttl_hours"`
	Status     Status      `yaml:"status" json:"status"`
	SessionID  string      `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	Conclusion *Conclusion `yaml:"conclusion,omitempty" json:"conclusion,omitempty"`

	// Rationale is stored as the Markdown body, not in the front-matter.
	Rationale string `yaml:"-" json:"rationale"`
}

// PrimaryPath returns the path of the first anchor.
func (s *Seed) PrimaryPath() string {
	if len(s.Anchors) == 0 {
		return ""
	}
	return s.Anchors[0].Path
}

func (s *Seed) dedupEntry() dedup.Entry {
	return dedup.Entry{ID: s.ID, Title: s.Title, PrimaryPath: s.PrimaryPath()}
}

// clone returns a deep copy so callers cannot alias store-owned slices.
func (s *Seed) clone() *Seed {
	c := *s
	c.Anchors = make([]Anchor, len(s.Anchors))
	copy(c.Anchors, s.Anchors)
	if s.Conclusion != nil {
		concl := *s.Conclusion
		c.Conclusion = &concl
	}
	return &c
}

// Draft is the caller-supplied part of a new seed.
type Draft struct {
	Title     string   `yaml:"title" json:"title"`
	Rationale string   `yaml:"rationale" json:"rationale"`
	Anchors   []Anchor `yaml:"anchors" json:"anchors"`
}
