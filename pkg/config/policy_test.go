package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/seedbank/pkg/storeerr"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPolicy_Missing(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "policy.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_Overrides(t *testing.T) {
	path := writePolicy(t, `
fresh_ratio = 0.5
cleanup_factor = 3.0
lock_timeout = "2s"

[dedup]
compare_anchor = false
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.FreshRatio)
	assert.Equal(t, 3.0, p.CleanupFactor)
	assert.Equal(t, 2*time.Second, p.LockTimeout)
	assert.False(t, p.Dedup.CompareAnchor)
	assert.False(t, p.DedupMatcher().CompareAnchor)
	assert.Equal(t, 0.5, p.Freshness().FreshRatio)
}

func TestLoadPolicy_PartialKeepsDefaults(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, "cleanup_factor = 4.0\n"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.CleanupFactor)
	assert.Equal(t, DefaultPolicy().FreshRatio, p.FreshRatio)
	assert.True(t, p.Dedup.CompareAnchor)
}

func TestLoadPolicy_Malformed(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, "fresh_ratio = [oops"))
	assert.ErrorIs(t, err, storeerr.ErrConfig)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_OutOfRange(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, "fresh_ratio = 2.0\n"))
	assert.ErrorIs(t, err, storeerr.ErrConfig)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_UnknownKeys(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, "cleanup_factor = 3.0\nretention = 5\n"))
	assert.ErrorIs(t, err, storeerr.ErrConfig)
	assert.Equal(t, 3.0, p.CleanupFactor, "known keys still apply")
}
