package seed

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// IDPrefix is the prefix of every seed id.
const IDPrefix = "seed_"

var idPattern = regexp.MustCompile(`^seed_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// NewID returns a fresh seed id. Ids are UUIDv7, so they sort by creation
// time and are unique across processes without coordination.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// The OS entropy source failed; nothing sensible can continue.
		panic(fmt.Errorf("seed: generate id: %w", err))
	}
	return IDPrefix + id.String()
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
