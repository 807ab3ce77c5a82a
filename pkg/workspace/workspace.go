// Package workspace resolves where a project's seedbank state lives and
// which session the current process belongs to.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const (
	// EnvDir overrides the base directory. Tests and separate projects use
	// it so they never share state.
	EnvDir = "SEEDBANK_DIR"

	// EnvSession carries the session identifier set by the session-start hook.
	EnvSession = "SEEDBANK_SESSION_ID"

	// DefaultDirName is created under the working directory when EnvDir is unset.
	DefaultDirName = ".seedbank"
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidSessionID reports whether id is safe to use for scoping state and
// naming files.
func ValidSessionID(id string) bool {
	return sessionPattern.MatchString(id)
}

// Layout names every file of one store.
type Layout struct {
	Root string
}

// Resolve picks the base directory: flag value, then EnvDir, then
// <cwd>/.seedbank. The result is absolute.
func Resolve(flagDir string, getenv func(string) string) (Layout, error) {
	dir := flagDir
	if dir == "" {
		dir = getenv(EnvDir)
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Layout{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, DefaultDirName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return Layout{Root: abs}, nil
}

// Ensure creates the directories of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.SeedsDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("workspace: init directory %s: %w", dir, err)
		}
	}
	return nil
}

// SeedsDir holds one record file per seed.
func (l Layout) SeedsDir() string { return filepath.Join(l.Root, "seeds") }

// SeedsLock guards every mutation of SeedsDir.
func (l Layout) SeedsLock() string { return filepath.Join(l.Root, "seeds.lock") }

// SettingsPath is the settings singleton.
func (l Layout) SettingsPath() string { return filepath.Join(l.Root, "settings.json") }

// SettingsLock guards SettingsPath.
func (l Layout) SettingsLock() string { return filepath.Join(l.Root, "settings.lock") }

// PolicyPath holds optional tunables.
func (l Layout) PolicyPath() string { return filepath.Join(l.Root, "policy.toml") }

// LogsDir holds per-session log files.
func (l Layout) LogsDir() string { return filepath.Join(l.Root, "logs") }

// Session is the outcome of reading EnvSession.
type Session struct {
	ID string
	// Rejected holds a non-empty value that failed validation.
	Rejected string
}

// SessionFromEnv reads EnvSession. An invalid value is reported in
// Rejected and never returned as ID.
func SessionFromEnv(getenv func(string) string) Session {
	raw := getenv(EnvSession)
	if raw == "" {
		return Session{}
	}
	if !ValidSessionID(raw) {
		return Session{Rejected: raw}
	}
	return Session{ID: raw}
}
