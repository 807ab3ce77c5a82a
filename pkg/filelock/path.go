package filelock

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

func splitPath(path string) (dir, base string) {
	return filepath.Dir(path), filepath.Base(path)
}

// SweepTemp removes temporary files left in dir by WriteFileAtomic calls
// whose process died before the rename. Only files older than minAge are
// touched so in-flight writes from live processes survive. Call it while
// holding the Guard for dir's resource.
func SweepTemp(dir string, minAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	cutoff := time.Now().Add(-minAge)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}
