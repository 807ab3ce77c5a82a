package seed

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	frontMatterDelimiter = "---"

	// recordVersion is written to every record. Version 1 stores the
	// rationale byte for byte after one separating blank line. Records
	// without a version predate that and had their body trimmed.
	recordVersion = 1
)

// frontMatter is the YAML header of a seed file.
type frontMatter struct {
	Version int `yaml:"version"`
	Seed    `yaml:",inline"`
}

// Parse decodes a seed file. It checks the front-matter shape only; the
// store validates the decoded record.
func Parse(raw []byte) (*Seed, error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontMatterDelimiter+"\n") {
		return nil, fmt.Errorf("seed: missing front-matter delimiter")
	}
	rest := s[len(frontMatterDelimiter)+1:]

	var yamlBlock, body string
	closing := "\n" + frontMatterDelimiter + "\n"
	switch idx := strings.Index("\n"+rest, closing); {
	case idx >= 0:
		// Searching "\n"+rest also finds a delimiter on the first line.
		yamlBlock = rest[:max(idx-1, 0)]
		body = rest[idx+len(closing)-1:]
	case strings.HasSuffix(rest, "\n"+frontMatterDelimiter):
		yamlBlock = strings.TrimSuffix(rest, "\n"+frontMatterDelimiter)
	default:
		return nil, fmt.Errorf("seed: unclosed front-matter block")
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, fmt.Errorf("seed: front-matter parse error: %w", err)
	}
	switch {
	case fm.Version > recordVersion:
		return nil, fmt.Errorf("seed: record version %d is newer than supported version %d", fm.Version, recordVersion)
	case fm.Version < 0:
		return nil, fmt.Errorf("seed: invalid record version %d", fm.Version)
	}

	seed := fm.Seed
	seed.Rationale = decodeBody(body, fm.Version)
	return &seed, nil
}

func decodeBody(body string, version int) string {
	if version == 0 {
		body = strings.TrimPrefix(body, "\n")
		return strings.TrimSuffix(body, "\n")
	}
	return strings.TrimPrefix(body, "\n")
}

// Serialize renders a seed to its on-disk form. The rationale follows the
// front-matter unchanged, so leading indentation and trailing newlines
// survive a round trip.
func Serialize(seed *Seed) ([]byte, error) {
	yamlBytes, err := yaml.Marshal(frontMatter{Version: recordVersion, Seed: *seed})
	if err != nil {
		return nil, fmt.Errorf("seed: serialize error: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.Write(yamlBytes)
	sb.WriteString(frontMatterDelimiter + "\n")
	if seed.Rationale != "" {
		sb.WriteString("\n")
		sb.WriteString(seed.Rationale)
	}
	return []byte(sb.String()), nil
}
