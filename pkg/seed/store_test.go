package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/freshness"
	"github.com/entrhq/seedbank/pkg/storeerr"
)

func openTestStore(t testing.TB, root, session string) *Store {
	t.Helper()
	settings := config.NewSettingsStore(
		filepath.Join(root, "settings.json"),
		filelock.New(filepath.Join(root, "settings.lock")),
		nil,
	)
	store, err := New(Options{
		Dir:       filepath.Join(root, "seeds"),
		Guard:     filelock.New(filepath.Join(root, "seeds.lock"), filelock.WithTimeout(30*time.Second)),
		Settings:  settings,
		SessionID: session,
	})
	require.NoError(t, err)
	return store
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, t.TempDir(), "")
}

// freezeTime pins timeNow and returns a setter to move it.
func freezeTime(t *testing.T, start time.Time) func(time.Time) {
	t.Helper()
	now := start
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })
	return func(next time.Time) { now = next }
}

func draft(title, path string) Draft {
	return Draft{
		Title:     title,
		Rationale: "because " + title,
		Anchors:   []Anchor{{Path: path}},
	}
}

func ids(seeds []*Seed) []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		out[i] = s.ID
	}
	return out
}

func TestStore_WriteGetRoundTrip(t *testing.T) {
	store := openTestStore(t, t.TempDir(), "sess-1")
	ctx := context.Background()

	d := Draft{
		Title:     "Extract retry helper",
		Rationale: "    for attempt := 0; attempt < 3; attempt++ {\n\nThree call sites copy the same loop.\n",
		Anchors: []Anchor{
			{Path: "pkg/filelock/filelock.go", ContextStart: "func (g *Guard) Do(", ContextEnd: "return fn()"},
			{Path: "pkg/config/store.go"},
		},
	}
	created, err := store.Write(ctx, d, WriteOptions{})
	require.NoError(t, err)
	assert.True(t, ValidID(created.ID))
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, 72, created.TTLHours)
	assert.Equal(t, "sess-1", created.SessionID)
	assert.Nil(t, created.Conclusion)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, d.Rationale, got.Rationale)
	assert.Equal(t, d.Rationale, created.Rationale)
	assert.Equal(t, d.Anchors, got.Anchors)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "pkg/filelock/filelock.go", got.PrimaryPath())
}

func TestStore_WriteUsesSettingsTTL(t *testing.T) {
	root := t.TempDir()
	store := openTestStore(t, root, "")
	ctx := context.Background()

	_, err := store.settings.Set(ctx, config.FieldTTLHours, "24")
	require.NoError(t, err)

	created, err := store.Write(ctx, draft("Short lived", "a.go"), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 24, created.TTLHours)

	// Changing the default later does not touch existing seeds.
	_, err = store.settings.Set(ctx, config.FieldTTLHours, "168")
	require.NoError(t, err)
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, got.TTLHours)
}

func TestStore_WriteValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft Draft
	}{
		{"backticks", draft("`rm -rf /`", "a.go")},
		{"command substitution", draft("fix $(whoami)", "a.go")},
		{"semicolon", draft("fix it; reboot", "a.go")},
		{"pipe", draft("cat a | sh", "a.go")},
		{"quote", draft("don't", "a.go")},
		{"redirect", draft("fix > /etc/passwd", "a.go")},
		{"newline", draft("line\nbreak", "a.go")},
		{"leading dash", draft("-rf", "a.go")},
		{"empty title", draft("   ", "a.go")},
		{"too long", draft(strings.Repeat("a", MaxTitleLength+1), "a.go")},
		{"no anchors", Draft{Title: "Valid title"}},
		{"empty anchor path", Draft{Title: "Valid title", Anchors: []Anchor{{Path: "a.go"}, {Path: "  "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Write(ctx, tt.draft, WriteOptions{})
			assert.ErrorIs(t, err, storeerr.ErrValidation)
		})
	}

	all, err := store.List(ctx, config.FilterAll)
	require.NoError(t, err)
	assert.Empty(t, all, "rejected writes must leave nothing behind")
}

func TestStore_TitleAllowList(t *testing.T) {
	store := newTestStore(t)
	created, err := store.Write(context.Background(),
		draft("Fix off-by-one in pkg/seed: use >= not > 100% of the time, see #12", "a.go"), WriteOptions{})
	// ">" is a redirect and must be rejected even amid allowed punctuation.
	assert.ErrorIs(t, err, storeerr.ErrValidation)
	assert.Nil(t, created)

	created, err = store.Write(context.Background(),
		draft("Fix off-by-one in pkg/seed: 100% of calls, see #12 @owner v1.2+", "a.go"), WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Fix off-by-one in pkg/seed: 100% of calls, see #12 @owner v1.2+", created.Title)
}

func TestStore_WriteDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Write(ctx, draft("Cache parsed config", "pkg/config/store.go"), WriteOptions{})
	require.NoError(t, err)

	_, err = store.Write(ctx, draft("  cache PARSED  config ", "./pkg/config/store.go"), WriteOptions{})
	var dup *storeerr.DuplicateError
	require.True(t, errors.As(err, &dup), "expected DuplicateError, got %v", err)
	assert.Equal(t, first.ID, dup.ExistingID)

	// Different primary anchor is not a duplicate.
	_, err = store.Write(ctx, draft("Cache parsed config", "pkg/config/policy.go"), WriteOptions{})
	require.NoError(t, err)

	// Force bypasses the check.
	forced, err := store.Write(ctx, draft("Cache parsed config", "pkg/config/store.go"), WriteOptions{Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, forced.ID)

	// Archived seeds no longer block.
	_, err = store.Archive(ctx, first.ID)
	require.NoError(t, err)
	_, err = store.Archive(ctx, forced.ID)
	require.NoError(t, err)
	_, err = store.Write(ctx, draft("Cache parsed config", "pkg/config/store.go"), WriteOptions{})
	assert.NoError(t, err)
}

func TestStore_DeleteThenGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Remove dead flag", "cmd/main.go"), WriteOptions{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)

	for _, f := range config.Filters {
		seeds, err := store.List(ctx, f)
		require.NoError(t, err)
		assert.NotContains(t, ids(seeds), created.ID, "filter %s", f)
	}

	// Repeating fails cleanly.
	assert.ErrorIs(t, store.Delete(ctx, created.ID), storeerr.ErrNotFound)
}

func TestStore_UnknownAndInvalidIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, NewID())
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	_, err = store.Archive(ctx, NewID())
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	_, err = store.Unarchive(ctx, NewID())
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
	_, err = store.Conclude(ctx, NewID(), "done", "")
	assert.ErrorIs(t, err, storeerr.ErrNotFound)

	for _, bad := range []string{"", "../settings", "seed_../../x", "a\\b"} {
		_, err := store.Get(ctx, bad)
		assert.ErrorIs(t, err, storeerr.ErrValidation, bad)
	}

	// Well-formed names that no seed can have are simply absent.
	for _, absent := range []string{"nope", "mem_123", "seed_1"} {
		_, err := store.Get(ctx, absent)
		assert.ErrorIs(t, err, storeerr.ErrNotFound, absent)
		assert.ErrorIs(t, store.Delete(ctx, absent), storeerr.ErrNotFound, absent)
		_, err = store.Archive(ctx, absent)
		assert.ErrorIs(t, err, storeerr.ErrNotFound, absent)
	}
}

func TestStore_ArchiveUnarchive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Split big file", "pkg/seed/store.go"), WriteOptions{})
	require.NoError(t, err)

	archived, err := store.Archive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, archived.Status)

	// Second archive is a no-op success.
	again, err := store.Archive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, again.Status)

	restored, err := store.Unarchive(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, restored.Status)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Status, got.Status)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, created.TTLHours, got.TTLHours)

	_, err = store.Unarchive(ctx, created.ID)
	assert.NoError(t, err)
}

func TestStore_Conclude(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Investigate slow list", "pkg/seed/query.go"), WriteOptions{})
	require.NoError(t, err)

	_, err = store.Conclude(ctx, created.ID, "investigated X", "/tmp/out.md")
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Conclusion)
	assert.Equal(t, "investigated X", got.Conclusion.Summary)
	assert.Equal(t, "/tmp/out.md", got.Conclusion.ResultPath)

	_, err = store.Conclude(ctx, created.ID, "investigated Y", "")
	require.NoError(t, err)
	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "investigated Y", got.Conclusion.Summary)
	assert.Empty(t, got.Conclusion.ResultPath)

	_, err = store.Conclude(ctx, created.ID, "  ", "")
	assert.ErrorIs(t, err, storeerr.ErrValidation)
}

func TestStore_ConcludeArchived(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Archived but concluded", "a.go"), WriteOptions{})
	require.NoError(t, err)
	_, err = store.Archive(ctx, created.ID)
	require.NoError(t, err)

	got, err := store.Conclude(ctx, created.ID, "still useful", "")
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, got.Status)
	assert.Equal(t, "still useful", got.Conclusion.Summary)
}

func TestStore_ListFiltersAndTiers(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	setNow := freezeTime(t, start)
	store := newTestStore(t)
	ctx := context.Background()

	// Ages at the final clock: 80h, 50h, 1h, plus an archived 80h seed.
	old, err := store.Write(ctx, draft("Old seed", "a.go"), WriteOptions{})
	require.NoError(t, err)
	oldArchived, err := store.Write(ctx, draft("Old archived seed", "b.go"), WriteOptions{})
	require.NoError(t, err)
	_, err = store.Archive(ctx, oldArchived.ID)
	require.NoError(t, err)

	setNow(start.Add(30 * time.Hour))
	mid, err := store.Write(ctx, draft("Middle seed", "c.go"), WriteOptions{})
	require.NoError(t, err)

	setNow(start.Add(79 * time.Hour))
	young, err := store.Write(ctx, draft("Young seed", "d.go"), WriteOptions{})
	require.NoError(t, err)

	setNow(start.Add(80 * time.Hour))

	assert.Equal(t, freshness.TierStale, store.Tier(old))
	assert.Equal(t, freshness.TierGrowing, store.Tier(mid))
	assert.Equal(t, freshness.TierFresh, store.Tier(young))
	assert.Equal(t, freshness.TierStale, store.Tier(oldArchived), "archived seeds still have a tier")

	tests := []struct {
		filter config.Filter
		want   []string
	}{
		{config.FilterActive, []string{young.ID, mid.ID}},
		{config.FilterOutdated, []string{old.ID}},
		{config.FilterArchived, []string{oldArchived.ID}},
		{config.FilterAll, []string{young.ID, mid.ID, oldArchived.ID, old.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			seeds, err := store.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(seeds))
		})
	}
}

func TestStore_ListTieBreaksByID(t *testing.T) {
	freezeTime(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.Write(ctx, draft("Seed A", "a.go"), WriteOptions{})
	require.NoError(t, err)
	b, err := store.Write(ctx, draft("Seed B", "b.go"), WriteOptions{})
	require.NoError(t, err)
	require.True(t, a.CreatedAt.Equal(b.CreatedAt))

	want := []string{a.ID, b.ID}
	if b.ID > a.ID {
		want = []string{b.ID, a.ID}
	}
	for i := 0; i < 3; i++ {
		seeds, err := store.List(ctx, config.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, want, ids(seeds))
	}
}

func TestStore_InvalidFilter(t *testing.T) {
	store := newTestStore(t)
	_, err := store.List(context.Background(), config.Filter("recent"))
	assert.ErrorIs(t, err, storeerr.ErrValidation)
}

func TestStore_QuerySessionAndAnchor(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	s1 := openTestStore(t, root, "sess-a")
	s2 := openTestStore(t, root, "sess-b")

	a, err := s1.Write(ctx, draft("Seed in pkg", "pkg/seed/store.go"), WriteOptions{})
	require.NoError(t, err)
	b, err := s2.Write(ctx, draft("Seed in cmd", "cmd/seedbank/main.go"), WriteOptions{})
	require.NoError(t, err)

	listing, err := s1.Query(ctx, Query{Filter: config.FilterAll, SessionID: "sess-a"})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(listing.Seeds))

	listing, err = s1.Query(ctx, Query{Filter: config.FilterAll, AnchorGlob: "cmd/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(listing.Seeds))

	listing, err = s1.Query(ctx, Query{Filter: config.FilterAll, AnchorGlob: "pkg/*.go"})
	require.NoError(t, err)
	assert.Empty(t, listing.Seeds, "single star does not cross directories")

	_, err = s1.Query(ctx, Query{AnchorGlob: "pkg/[a"})
	assert.ErrorIs(t, err, storeerr.ErrValidation)
}

func TestStore_CorruptRecordsSkipped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"First seed", "Second seed"} {
		_, err := store.Write(ctx, draft(title, title+".go"), WriteOptions{})
		require.NoError(t, err)
	}
	badID := NewID()
	badPath := filepath.Join(store.Dir(), badID+".md")
	require.NoError(t, os.WriteFile(badPath, []byte("---\nid: ["), 0o600))
	_, err := store.Write(ctx, draft("Third seed", "third.go"), WriteOptions{})
	require.NoError(t, err)

	listing, err := store.Query(ctx, Query{Filter: config.FilterAll})
	require.NoError(t, err)
	assert.Len(t, listing.Seeds, 3)
	require.Len(t, listing.Corrupt, 1)
	assert.Equal(t, badPath, listing.Corrupt[0].Path)

	all, err := store.List(ctx, config.FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// The corrupt record is reported on direct access but does not block
	// mutations of the others.
	_, err = store.Get(ctx, badID)
	assert.ErrorIs(t, err, storeerr.ErrCorruptEntry)
	_, err = store.Archive(ctx, badID)
	assert.ErrorIs(t, err, storeerr.ErrCorruptEntry)

	res, err := store.ArchiveAll(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 3)

	// An explicit delete removes it.
	require.NoError(t, store.Delete(ctx, badID))
	assert.NoFileExists(t, badPath)
}

func TestStore_RecordFailingValidationIsCorrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Valid seed", "a.go"), WriteOptions{})
	require.NoError(t, err)

	// A record whose id does not match its file name.
	otherID := NewID()
	raw, err := os.ReadFile(filepath.Join(store.Dir(), created.ID+".md"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), otherID+".md"), raw, 0o600))

	// A record with an unsafe title.
	evil := &Seed{
		ID:        NewID(),
		Title:     "`reboot`",
		Anchors:   []Anchor{{Path: "a.go"}},
		CreatedAt: time.Now().UTC(),
		TTLHours:  72,
		Status:    StatusActive,
	}
	b, err := Serialize(evil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), evil.ID+".md"), b, 0o600))

	listing, err := store.Query(ctx, Query{Filter: config.FilterAll})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(listing.Seeds))
	assert.Len(t, listing.Corrupt, 2)
}

func TestStore_IgnoresTempAndForeignFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, draft("Only seed", "a.go"), WriteOptions{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), ".x.md.123.tmp"), []byte("partial"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "README.txt"), []byte("notes"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "sub.md"), 0o750))

	listing, err := store.Query(ctx, Query{Filter: config.FilterAll})
	require.NoError(t, err)
	assert.Len(t, listing.Seeds, 1)
	assert.Empty(t, listing.Corrupt)
}

func TestStore_ConcurrentWritersInProcess(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each writer has its own guard, as a separate process would.
			store := openTestStore(t, root, "")
			_, err := store.Write(ctx, draft(fmt.Sprintf("Concurrent seed %d", i), fmt.Sprintf("f%d.go", i)), WriteOptions{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seeds, err := openTestStore(t, root, "").List(ctx, config.FilterAll)
	require.NoError(t, err)
	assert.Len(t, seeds, writers)
}

func TestStore_SharedAcrossGoroutines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Write(ctx, draft(fmt.Sprintf("Shared store seed %d", i), fmt.Sprintf("s%d.go", i)), WriteOptions{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seeds, err := store.List(ctx, config.FilterAll)
	require.NoError(t, err)
	assert.Len(t, seeds, writers)

	// Mutations of existing seeds queue the same way.
	for _, seed := range seeds {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := store.Archive(ctx, id)
			assert.NoError(t, err)
		}(seed.ID)
	}
	wg.Wait()

	archived, err := store.List(ctx, config.FilterArchived)
	require.NoError(t, err)
	assert.Len(t, archived, writers)
}

func TestStore_ConcurrentDuplicateWriters(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	const writers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store := openTestStore(t, root, "")
			_, err := store.Write(ctx, draft("Same observation", "same.go"), WriteOptions{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, storeerr.ErrDuplicate):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks, "exactly one writer wins")
	assert.Equal(t, writers-1, dups)
}

const (
	envHelperWriter = "SEEDBANK_TEST_HELPER_WRITER"
	envHelperRoot   = "SEEDBANK_TEST_HELPER_ROOT"
	envHelperTitle  = "SEEDBANK_TEST_HELPER_TITLE"
)

// TestHelperWriterProcess is not a real test: it is the body of a child
// process spawned by TestStore_ConcurrentWriterProcesses.
func TestHelperWriterProcess(t *testing.T) {
	if os.Getenv(envHelperWriter) != "1" {
		return
	}
	store := openTestStore(t, os.Getenv(envHelperRoot), "")
	title := os.Getenv(envHelperTitle)
	if _, err := store.Write(context.Background(), draft(title, title+".go"), WriteOptions{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func TestStore_ConcurrentWriterProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	root := t.TempDir()
	const procs = 6

	cmds := make([]*exec.Cmd, procs)
	for i := range cmds {
		cmd := exec.Command(os.Args[0], "-test.run=^TestHelperWriterProcess$")
		cmd.Env = append(os.Environ(),
			envHelperWriter+"=1",
			envHelperRoot+"="+root,
			fmt.Sprintf("%s=Process seed %d", envHelperTitle, i),
		)
		require.NoError(t, cmd.Start())
		cmds[i] = cmd
	}
	for i, cmd := range cmds {
		assert.NoError(t, cmd.Wait(), "writer %d", i)
	}

	seeds, err := openTestStore(t, root, "").List(context.Background(), config.FilterAll)
	require.NoError(t, err)
	assert.Len(t, seeds, procs)
}

func TestStore_LockTimeout(t *testing.T) {
	root := t.TempDir()
	store := openTestStore(t, root, "")
	store.guard = filelock.New(filepath.Join(root, "seeds.lock"), filelock.WithTimeout(50*time.Millisecond))
	ctx := context.Background()

	created, err := store.Write(ctx, draft("Contended seed", "a.go"), WriteOptions{})
	require.NoError(t, err)

	holder := filelock.New(filepath.Join(root, "seeds.lock"))
	acquired := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.Do(ctx, func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	_, err = store.Archive(ctx, created.ID)
	assert.ErrorIs(t, err, storeerr.ErrLockTimeout)

	// Reads do not take the lock.
	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status, "failed mutation leaves state unchanged")

	close(release)
	require.NoError(t, <-done)
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.True(t, ValidID(id), id)
		assert.False(t, seen[id])
		seen[id] = true
		assert.Greater(t, id, prev, "ids sort by creation order")
		prev = id
	}
}
