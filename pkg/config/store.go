package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/logging"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

const (
	settingsVersion = "1.0"

	// readRetryDelay is the pause before re-reading a file that failed to
	// parse, in case a writer's rename landed mid-read.
	readRetryDelay = 20 * time.Millisecond
)

// settingsFile is the on-disk shape of settings.json.
type settingsFile struct {
	Version  string                 `json:"version"`
	Settings map[string]interface{} `json:"settings"`
}

// SettingsStore persists the Settings singleton in a JSON file.
// Reads are lock-free; every change is a locked read-modify-write that
// publishes the file atomically.
type SettingsStore struct {
	path  string
	guard *filelock.Guard
	log   logging.Leveled
}

// NewSettingsStore creates a store for the file at path, serialized by guard.
func NewSettingsStore(path string, guard *filelock.Guard, log logging.Leveled) *SettingsStore {
	if log == nil {
		log = logging.Nop()
	}
	return &SettingsStore{path: path, guard: guard, log: log}
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns the current settings. A missing file yields the defaults.
// A malformed file, or malformed fields, fall back to defaults for the
// affected values and are logged as configuration errors; only an
// unreadable file is reported to the caller.
func (s *SettingsStore) Load() (Settings, error) {
	settings := DefaultSettings()
	var decoded settingsFile
	err := filelock.ReadFileRetry(s.path, readRetryDelay, func(b []byte) error {
		decoded = settingsFile{}
		return json.Unmarshal(b, &decoded)
	})
	switch {
	case errors.Is(err, os.ErrNotExist):
		return settings, nil
	case err != nil && isReadError(err):
		return settings, fmt.Errorf("settings: read %s: %w", s.path, err)
	case err != nil:
		s.log.Warnf("settings: %v: %s is malformed, using defaults: %v", storeerr.ErrConfig, s.path, err)
		return settings, nil
	}

	if err := settings.SetData(decoded.Settings); err != nil {
		s.log.Warnf("settings: %v: %s has invalid values, using defaults for them: %v", storeerr.ErrConfig, s.path, err)
	}
	return settings, nil
}

func isReadError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}

// Update applies fn to the current settings under the lock and persists
// the result. If fn fails or the result is invalid nothing is written.
func (s *SettingsStore) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	var out Settings
	err := s.guard.Do(ctx, func(context.Context) error {
		cur, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(&cur); err != nil {
			return err
		}
		if err := cur.Validate(); err != nil {
			return err
		}
		if err := s.save(cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return out, nil
}

func (s *SettingsStore) save(settings Settings) error {
	b, err := json.MarshalIndent(settingsFile{
		Version:  settingsVersion,
		Settings: settings.Data(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	return filelock.WriteFileAtomic(s.path, append(b, '\n'), 0o600)
}

// Get returns one field of the current settings.
func (s *SettingsStore) Get(field string) (string, error) {
	settings, err := s.Load()
	if err != nil {
		return "", err
	}
	return settings.Get(field)
}

// Set parses and stores one field.
func (s *SettingsStore) Set(ctx context.Context, field, value string) (Settings, error) {
	settings, err := s.Update(ctx, func(cur *Settings) error {
		return cur.Set(field, value)
	})
	if err == nil {
		s.log.Infof("settings: %s set to %s", field, value)
	}
	return settings, err
}

// Cycle advances one field to its next value and stores it.
func (s *SettingsStore) Cycle(ctx context.Context, field string) (Settings, error) {
	settings, err := s.Update(ctx, func(cur *Settings) error {
		return cur.Cycle(field)
	})
	if err == nil {
		v, _ := settings.Get(field)
		s.log.Infof("settings: %s cycled to %s", field, v)
	}
	return settings, err
}

// Reset restores the defaults on disk.
func (s *SettingsStore) Reset(ctx context.Context) (Settings, error) {
	return s.Update(ctx, func(cur *Settings) error {
		*cur = DefaultSettings()
		return nil
	})
}

// TTLHours returns the default TTL for new seeds.
func (s *SettingsStore) TTLHours() (int, error) {
	settings, err := s.Load()
	if err != nil {
		return 0, err
	}
	return settings.TTLHours, nil
}
