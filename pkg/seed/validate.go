package seed

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

const (
	// MaxTitleLength bounds titles so they fit a menu line.
	MaxTitleLength = 120

	// MaxSummaryLength bounds conclusion summaries.
	MaxSummaryLength = 4000
)

// titlePattern is an allow-list. Titles end up in menu entries and in
// commands a caller executes, so quotes, backticks, $, ;, |, &, <, >,
// parentheses, braces, globs and backslashes are all rejected. The first
// character must be alphanumeric so a title never reads as a flag.
var titlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 .,:/_+@%=#-]*$`)

// ValidateTitle checks a trimmed title against the allow-list.
func ValidateTitle(title string) error {
	if title == "" {
		return storeerr.Invalid("title", "must not be empty")
	}
	if len(title) > MaxTitleLength {
		return storeerr.Invalid("title", "longer than %d characters", MaxTitleLength)
	}
	if !titlePattern.MatchString(title) {
		return storeerr.Invalid("title", "%q contains disallowed characters (allowed: letters, digits, spaces and . , : / _ + @ %% = # -)", title)
	}
	return nil
}

// ValidateAnchors checks there is at least one anchor and every path is
// a non-empty single line.
func ValidateAnchors(anchors []Anchor) error {
	if len(anchors) == 0 {
		return storeerr.Invalid("anchors", "at least one anchor is required")
	}
	for i, a := range anchors {
		if strings.TrimSpace(a.Path) == "" {
			return storeerr.Invalid("anchors", "anchor %d has an empty path", i)
		}
		if strings.ContainsAny(a.Path, "\x00\r\n") {
			return storeerr.Invalid("anchors", "anchor %d path contains control characters", i)
		}
	}
	return nil
}

// normalizeDraft trims the title and anchor paths and validates the
// draft. The rationale is kept as given.
func normalizeDraft(d Draft) (Draft, error) {
	out := Draft{
		Title:     strings.TrimSpace(d.Title),
		Rationale: d.Rationale,
		Anchors:   make([]Anchor, len(d.Anchors)),
	}
	for i, a := range d.Anchors {
		out.Anchors[i] = Anchor{
			Path:         strings.TrimSpace(a.Path),
			ContextStart: a.ContextStart,
			ContextEnd:   a.ContextEnd,
		}
	}
	if err := ValidateTitle(out.Title); err != nil {
		return Draft{}, err
	}
	if err := ValidateAnchors(out.Anchors); err != nil {
		return Draft{}, err
	}
	return out, nil
}

// validateRecord is the load boundary: anything read from disk must pass
// it before it is treated as a Seed.
func validateRecord(s *Seed) error {
	if !ValidID(s.ID) {
		return fmt.Errorf("invalid id %q", s.ID)
	}
	if err := ValidateTitle(s.Title); err != nil {
		return err
	}
	if err := ValidateAnchors(s.Anchors); err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("missing created_at")
	}
	if s.TTLHours <= 0 || s.TTLHours > config.MaxTTLHours {
		return fmt.Errorf("ttl_hours %d outside 1..%d", s.TTLHours, config.MaxTTLHours)
	}
	if !s.Status.valid() {
		return fmt.Errorf("invalid status %q", s.Status)
	}
	if s.Conclusion != nil && strings.TrimSpace(s.Conclusion.Summary) == "" {
		return fmt.Errorf("conclusion without summary")
	}
	return nil
}
