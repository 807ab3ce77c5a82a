// Package dedup decides whether a candidate seed repeats an existing one.
// It has no storage side effects; the caller chooses what to do on a match.
package dedup

import (
	"path"
	"strings"
)

// Entry is the part of a seed the matcher looks at.
type Entry struct {
	ID          string
	Title       string
	PrimaryPath string
}

// Policy controls what counts as a duplicate.
type Policy struct {
	// CompareAnchor requires the primary anchor paths to match as well as
	// the titles. With it off, a title match alone is a duplicate.
	CompareAnchor bool
}

// DefaultPolicy matches on normalized title and primary anchor path.
func DefaultPolicy() Policy {
	return Policy{CompareAnchor: true}
}

// NormalizeTitle case-folds a title and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// NormalizePath cleans an anchor path so "./a//b" and "a/b" compare equal.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// FindDuplicate returns the id of the first entry in existing that the
// candidate duplicates. existing should hold only active seeds.
func (p Policy) FindDuplicate(candidate Entry, existing []Entry) (string, bool) {
	title := NormalizeTitle(candidate.Title)
	if title == "" {
		return "", false
	}
	anchor := NormalizePath(candidate.PrimaryPath)

	for _, e := range existing {
		if NormalizeTitle(e.Title) != title {
			continue
		}
		if p.CompareAnchor && NormalizePath(e.PrimaryPath) != anchor {
			continue
		}
		return e.ID, true
	}
	return "", false
}

// FindDuplicate applies DefaultPolicy.
func FindDuplicate(candidate Entry, existing []Entry) (string, bool) {
	return DefaultPolicy().FindDuplicate(candidate, existing)
}
