package repositories

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// setupTestDB creates an in-memory SQLite store with migrations applied
func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := NewSQLiteStore(db, ":memory:")
	t.Cleanup(func() { store.Close() })
	return store
}

func setupFileStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}

func newPlaylist(name string, tracks ...string) *models.Playlist {
	p := models.NewPlaylist(name, "")
	for _, title := range tracks {
		p.AddTrack(models.Track{Title: title, Artist: "Artist", DurationMS: 180_000})
	}
	return p
}

// runStoreContract exercises behavior shared by every [PlaylistStore].
func runStoreContract(t *testing.T, open func(t *testing.T) PlaylistStore) {
	t.Run("Put And Get", func(t *testing.T) {
		store := open(t)
		p := newPlaylist("Road Trip", "A", "B")
		p.Description = "long drives"
		p.AddTag("summer")
		p.SetPlatformID(models.AppleMusic, "p.123")
		p.Tracks[0].SetPlatformID(models.AppleMusic, "100")

		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		got, err := store.Get(p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}

		if got.Name != p.Name || got.Description != p.Description {
			t.Errorf("expected %q/%q, got %q/%q", p.Name, p.Description, got.Name, got.Description)
		}
		if len(got.Tracks) != 2 || got.Tracks[0].Title != "A" || got.Tracks[1].Title != "B" {
			t.Errorf("unexpected tracks %+v", got.Tracks)
		}
		if id, _ := got.PlatformID(models.AppleMusic); id != "p.123" {
			t.Errorf("expected sync link p.123, got %q", id)
		}
		if id, _ := got.Tracks[0].PlatformID(models.AppleMusic); id != "100" {
			t.Errorf("expected track link 100, got %q", id)
		}
		if !got.UpdatedAt.Equal(p.UpdatedAt) {
			t.Errorf("expected updated_at %v, got %v", p.UpdatedAt, got.UpdatedAt)
		}
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		store := open(t)
		p := newPlaylist("Mix", "A", "B", "C")
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		p.Name = "Renamed"
		if _, err := p.RemoveTrackAt(1); err != nil {
			t.Fatalf("failed to remove track: %v", err)
		}
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to overwrite playlist: %v", err)
		}

		entries, err := store.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Name != "Renamed" || entries[0].TrackCount != 2 {
			t.Errorf("index not updated: %+v", entries[0])
		}
	})

	t.Run("Put Rejects Invalid", func(t *testing.T) {
		store := open(t)
		p := newPlaylist("Mix")
		p.Name = ""
		if err := store.Put(p); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		store := open(t)
		if _, err := store.Get("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := open(t)
		p := newPlaylist("Mix", "A")
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if err := store.Delete(p.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := store.Get(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound after delete, got %v", err)
		}
		if err := store.Delete(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound on second delete, got %v", err)
		}

		entries, _ := store.List()
		if len(entries) != 0 {
			t.Errorf("expected empty index, got %d entries", len(entries))
		}
	})

	t.Run("List Order And Links", func(t *testing.T) {
		store := open(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		names := []string{"First", "Second", "Third"}
		for _, i := range []int{2, 0, 1} {
			p := newPlaylist(names[i], "A")
			p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			if i == 2 {
				p.SetPlatformID(models.AppleMusic, "p.1")
			}
			if err := store.Put(p); err != nil {
				t.Fatalf("failed to put %s: %v", names[i], err)
			}
		}

		entries, err := store.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		for i, want := range names {
			if entries[i].Name != want {
				t.Errorf("position %d: expected %s, got %s", i, want, entries[i].Name)
			}
		}
		if !entries[2].Synced(models.AppleMusic) || entries[0].Synced(models.AppleMusic) {
			t.Errorf("expected only Third to be linked: %+v", entries)
		}
	})

	t.Run("Concurrent Puts", func(t *testing.T) {
		store := open(t)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := range 20 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Put(newPlaylist(fmt.Sprintf("P%d", i), "A"))
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent put failed: %v", err)
			}
		}

		entries, err := store.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 20 {
			t.Errorf("expected 20 entries, got %d", len(entries))
		}
	})
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) PlaylistStore { return setupFileStore(t) })

	t.Run("Layout", func(t *testing.T) {
		store := setupFileStore(t)
		p := newPlaylist("Mix", "A")
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if _, err := os.Stat(filepath.Join(store.Location(), "playlists", p.ID+".json")); err != nil {
			t.Errorf("expected record file: %v", err)
		}
		if _, err := os.Stat(filepath.Join(store.Location(), "index.json")); err != nil {
			t.Errorf("expected index file: %v", err)
		}

		leftovers, _ := filepath.Glob(filepath.Join(store.Location(), "playlists", ".tmp-*"))
		if len(leftovers) != 0 {
			t.Errorf("expected no temp files, got %v", leftovers)
		}
	})

	t.Run("Rebuilds Missing Index", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}
		p := newPlaylist("Mix", "A", "B")
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if err := os.Remove(filepath.Join(dir, "index.json")); err != nil {
			t.Fatalf("failed to remove index: %v", err)
		}

		reopened, err := NewFileStore(dir)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		entries, err := reopened.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 1 || entries[0].ID != p.ID || entries[0].TrackCount != 2 {
			t.Errorf("unexpected rebuilt index %+v", entries)
		}
		if _, err := os.Stat(filepath.Join(dir, "index.json")); err != nil {
			t.Errorf("expected rebuilt index on disk: %v", err)
		}
	})

	t.Run("Rebuilds Corrupt Index", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := NewFileStore(dir)
		if err := store.Put(newPlaylist("Mix", "A")); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to corrupt index: %v", err)
		}

		reopened, _ := NewFileStore(dir)
		entries, err := reopened.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 entry after rebuild, got %d", len(entries))
		}
	})

	t.Run("Corrupt Record", func(t *testing.T) {
		store := setupFileStore(t)
		path := filepath.Join(store.Location(), "playlists", "broken.json")
		if err := os.WriteFile(path, []byte("nope"), 0644); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
		if _, err := store.Get("broken"); !errors.Is(err, shared.ErrCorruptRecord) {
			t.Errorf("expected ErrCorruptRecord, got %v", err)
		}
	})

	t.Run("Rejects Path Ids", func(t *testing.T) {
		store := setupFileStore(t)
		if _, err := store.Get("../escape"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Empty Dir", func(t *testing.T) {
		if _, err := NewFileStore(""); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) PlaylistStore { return setupSQLiteStore(t) })

	t.Run("Sync History", func(t *testing.T) {
		store := setupSQLiteStore(t)
		p := newPlaylist("Mix", "A")
		if err := store.Put(p); err != nil {
			t.Fatalf("failed to put playlist: %v", err)
		}

		now := time.Now().UTC()
		runs := []models.SyncRun{
			{PlaylistID: p.ID, Platform: models.AppleMusic, Direction: models.DirectionTo, RemoteID: "p.1", Synced: 1, FinishedAt: now.Add(-time.Hour)},
			{PlaylistID: p.ID, Platform: models.AppleMusic, Direction: models.DirectionTo, RemoteID: "p.1", Synced: 1, Skipped: 1, FinishedAt: now},
		}
		for _, r := range runs {
			if err := store.RecordSync(r); err != nil {
				t.Fatalf("failed to record sync: %v", err)
			}
		}

		history, err := store.History(p.ID)
		if err != nil {
			t.Fatalf("failed to read history: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(history))
		}
		if history[0].Skipped != 1 {
			t.Errorf("expected newest run first, got %+v", history[0])
		}
		if history[0].ID == "" {
			t.Error("expected run id to be generated")
		}

		if err := store.Delete(p.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		history, _ = store.History(p.ID)
		if len(history) != 0 {
			t.Errorf("expected history removed with playlist, got %d", len(history))
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("File Driver", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(shared.StorageConfig{Driver: "file", Dir: dir})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer store.Close()

		if _, ok := store.(*FileStore); !ok {
			t.Errorf("expected *FileStore, got %T", store)
		}
		if _, ok := store.(SyncHistory); ok {
			t.Error("file store should not record sync history")
		}
	})

	t.Run("SQLite Driver", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(shared.StorageConfig{Driver: "sqlite", Dir: dir})
		if err != nil {
			t.Fatalf("failed to open: %v", err)
		}
		defer store.Close()

		if store.Location() != filepath.Join(dir, "plylist.db") {
			t.Errorf("unexpected location %s", store.Location())
		}
		if _, ok := store.(SyncHistory); !ok {
			t.Error("sqlite store should record sync history")
		}
		if err := store.Put(newPlaylist("Mix", "A")); err != nil {
			t.Errorf("failed to put into opened store: %v", err)
		}
	})

	t.Run("Unknown Driver", func(t *testing.T) {
		if _, err := Open(shared.StorageConfig{Driver: "mongo"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
