package tasks

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
	tu "github.com/desertthunder/plylist/internal/testing"
)

func TestLibrary(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		lib := newTestLibrary(t)

		p, err := lib.Create("  Chill  ", "evening", []string{"lofi", " ", "lofi", "jazz"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		got, err := lib.Get(p.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Name != "Chill" || got.Description != "evening" || len(got.Tags) != 2 {
			t.Errorf("unexpected playlist %+v", got)
		}

		if _, err := lib.Create(" ", "", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for a blank name, got %v", err)
		}
		if _, err := lib.Get("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Rename, SetDescription and Tag", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Old")

		if _, err := lib.Rename(p.ID, "  "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		renamed, err := lib.Rename(p.ID, "New")
		if err != nil || renamed.Name != "New" {
			t.Fatalf("rename failed: %v", err)
		}
		if !renamed.UpdatedAt.After(p.UpdatedAt) {
			t.Error("expected updated_at to advance")
		}

		described, err := lib.SetDescription(p.ID, " words ")
		if err != nil || described.Description != "words" {
			t.Errorf("set description failed: %v (%q)", err, described.Description)
		}

		tagged, err := lib.Tag(p.ID, []string{"a", "b"}, nil)
		if err != nil || len(tagged.Tags) != 2 {
			t.Fatalf("tag failed: %v", err)
		}
		untagged, err := lib.Tag(p.ID, nil, []string{"a"})
		if err != nil || len(untagged.Tags) != 1 || untagged.Tags[0] != "b" {
			t.Errorf("untag failed: %v (%v)", err, untagged.Tags)
		}

		if _, err := lib.Rename("missing", "x"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("track edits", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Edits", [2]string{"A", "X"}, [2]string{"B", "X"})

		added, err := lib.AddTrack(p.ID, models.NewTrack("First", "Y"), 0)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		got, _ := lib.Get(p.ID)
		if len(got.Tracks) != 3 || got.Tracks[0].ID != added.ID {
			t.Fatalf("expected insert at front, got %+v", got.Tracks)
		}

		if _, err := lib.AddTrack(p.ID, models.Track{Title: "No Artist"}, -1); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}

		if _, err := lib.MoveTrack(p.ID, 0, 2); err != nil {
			t.Fatalf("move failed: %v", err)
		}
		got, _ = lib.Get(p.ID)
		if got.Tracks[2].Title != "First" || got.Tracks[0].Title != "A" {
			t.Errorf("unexpected order after move: %s, %s, %s", got.Tracks[0].Title, got.Tracks[1].Title, got.Tracks[2].Title)
		}
		if _, err := lib.MoveTrack(p.ID, 0, 5); !errors.Is(err, shared.ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}

		removed, err := lib.RemoveTrack(p.ID, added.ID)
		if err != nil || removed.Title != "First" {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := lib.RemoveTrack(p.ID, added.ID); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Gone")

		if err := lib.Delete(p.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := lib.Delete(p.ID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		lib := newTestLibrary(t)
		rock, _ := lib.Create("Rock Classics", "", []string{"rock"})
		_, _ = lib.Create("Focus", "deep work beats", []string{"study"})
		_, _ = lib.Create("Party", "", []string{"dance", "rock"})

		tests := []struct {
			name  string
			query string
			tags  []string
			want  int
		}{
			{"everything", "", nil, 3},
			{"by name", "classic", nil, 1},
			{"by description", "WORK", nil, 1},
			{"by tag text", "stud", nil, 1},
			{"by tags", "", []string{"ROCK"}, 2},
			{"query and tags", "rock", []string{"dance"}, 1},
			{"nothing", "zzz", nil, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := lib.Search(tt.query, tt.tags)
				if err != nil {
					t.Fatalf("search failed: %v", err)
				}
				if len(got) != tt.want {
					t.Errorf("expected %d results, got %d", tt.want, len(got))
				}
			})
		}

		got, _ := lib.Search("classics", nil)
		if got[0].ID != rock.ID {
			t.Errorf("unexpected match %+v", got[0])
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Original", [2]string{"A", "X"})
		if _, err := lib.update(p.ID, func(p *models.Playlist) error {
			p.SetPlatformID(fakeName, "p.1")
			p.Tracks[0].SetPlatformID(fakeName, "s1")
			return nil
		}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		dup, err := lib.Duplicate(p.ID, "")
		if err != nil {
			t.Fatalf("duplicate failed: %v", err)
		}
		if dup.Name != "Copy of Original" || dup.ID == p.ID || dup.Tracks[0].ID == p.Tracks[0].ID {
			t.Errorf("unexpected duplicate %+v", dup)
		}
		if _, ok := dup.PlatformID(fakeName); ok {
			t.Error("duplicate should not keep the sync link")
		}

		named, _ := lib.Duplicate(p.ID, "Named")
		if named.Name != "Named" {
			t.Errorf("expected custom name, got %s", named.Name)
		}
	})

	t.Run("Merge", func(t *testing.T) {
		lib := newTestLibrary(t)
		a := mustCreate(t, lib, "A", [2]string{"One", "X"}, [2]string{"Two", "X"})
		b := mustCreate(t, lib, "B", [2]string{"two", " x "}, [2]string{"Three", "X"})

		merged, err := lib.Merge([]string{a.ID, "missing", b.ID}, "Both", false)
		if err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		titles := []string{}
		for _, tr := range merged.Tracks {
			titles = append(titles, tr.Title)
		}
		if strings.Join(titles, ",") != "One,Two,Three" {
			t.Errorf("unexpected merged tracks %v", titles)
		}
		if merged.Description != "Merged from A, B" {
			t.Errorf("unexpected description %q", merged.Description)
		}
		if merged.Tracks[0].ID == a.Tracks[0].ID {
			t.Error("merged tracks should get fresh ids")
		}

		kept, err := lib.Merge([]string{a.ID, b.ID}, "All", true)
		if err != nil || len(kept.Tracks) != 4 {
			t.Errorf("expected duplicates to be kept: %v", err)
		}

		if _, err := lib.Merge([]string{"nope"}, "None", false); !errors.Is(err, shared.ErrNothingToMerge) {
			t.Errorf("expected ErrNothingToMerge, got %v", err)
		}
		if _, err := lib.Merge([]string{a.ID}, "", false); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		lib := newTestLibrary(t)
		mustCreate(t, lib, "A", [2]string{"One", "X"}, [2]string{"Two", "X"})
		b := mustCreate(t, lib, "B", [2]string{"Three", "X"})
		if _, err := lib.update(b.ID, func(p *models.Playlist) error {
			p.SetPlatformID(fakeName, "p.1")
			return nil
		}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		stats, err := lib.Stats()
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		if stats.Playlists != 2 || stats.Tracks != 3 || stats.Synced[fakeName] != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if stats.Location != lib.Store().Location() || stats.StorageBytes == 0 {
			t.Errorf("unexpected storage info %+v", stats)
		}
	})
}

func TestLibraryImportExport(t *testing.T) {
	t.Run("JSON export and import keep ids", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Portable", [2]string{"A", "X"})
		path := filepath.Join(t.TempDir(), "portable.json")

		if err := lib.ExportFile(p.ID, path, ""); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if _, err := lib.ImportFile(path, "", "", false); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected duplicate id to be refused, got %v", err)
		}

		other := newTestLibrary(t)
		imported, err := other.ImportFile(path, "", "", false)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if imported.ID != p.ID || imported.Tracks[0].ID != p.Tracks[0].ID {
			t.Errorf("expected ids to survive, got %s", imported.ID)
		}

		fresh, err := lib.ImportFile(path, formatter.JSON, "Renamed", true)
		if err != nil {
			t.Fatalf("import with new id failed: %v", err)
		}
		if fresh.ID == p.ID || fresh.Name != "Renamed" {
			t.Errorf("expected a new id and name, got %s %s", fresh.ID, fresh.Name)
		}
		if fresh.Tracks[0].ID == p.Tracks[0].ID {
			t.Error("expected tracks to get fresh ids")
		}
	})

	t.Run("JSON import with a new id drops sync links", func(t *testing.T) {
		fake := workoutFake()
		engine, lib := newTestEngine(t, fake)
		p := mustCreate(t, lib, "Workout Mix", workoutTracks...)
		if _, err := engine.SyncTo(context.Background(), p.ID, fakeName, nil); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		synced, _ := lib.Get(p.ID)

		path := filepath.Join(t.TempDir(), "workout.json")
		if err := lib.ExportFile(p.ID, path, formatter.JSON); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		fresh, err := lib.ImportFile(path, formatter.JSON, "", true)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if fresh.Name != synced.Name || len(fresh.Tracks) != len(synced.Tracks) {
			t.Fatalf("unexpected import %+v", fresh)
		}
		if _, ok := fresh.PlatformID(fakeName); ok {
			t.Error("imported copy should not be linked to the same remote playlist")
		}
		for i, tr := range fresh.Tracks {
			if tr.ID == synced.Tracks[i].ID {
				t.Errorf("track %d kept its id", i)
			}
			if _, ok := tr.PlatformID(fakeName); ok {
				t.Errorf("track %d kept its link", i)
			}
		}

		statuses, err := engine.Status()
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if len(statuses) != 1 || len(statuses[0].Synced) != 1 || len(statuses[0].LocalOnly) != 1 {
			t.Errorf("expected one synced and one local playlist, got %+v", statuses)
		}
	})

	t.Run("CSV import is named after the file", func(t *testing.T) {
		lib := newTestLibrary(t)
		path := filepath.Join(t.TempDir(), "road trip.csv")
		tu.MustWriteFile(t, path, "Title,Artist\nSong,Band\n")

		p, err := lib.ImportFile(path, "", "", false)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if p.Name != "road trip" || len(p.Tracks) != 1 {
			t.Errorf("unexpected playlist %+v", p)
		}
	})

	t.Run("Export to writer", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "Listing", [2]string{"A", "X"})

		var buf bytes.Buffer
		if err := lib.Export(p.ID, &buf, formatter.Markdown); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(buf.String(), "# Listing") {
			t.Errorf("unexpected markdown %s", buf.String())
		}

		if err := lib.Export("missing", &buf, formatter.JSON); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("unsupported formats", func(t *testing.T) {
		lib := newTestLibrary(t)
		p := mustCreate(t, lib, "X")
		dir := t.TempDir()

		if err := lib.ExportFile(p.ID, filepath.Join(dir, "x.out"), formatter.Format("xml")); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
		if _, err := lib.ImportFile(filepath.Join(dir, "x.md"), "", "", false); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestIDLocks(t *testing.T) {
	locks := newIDLocks()

	unlock := locks.Lock("a")
	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("a")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock should block while the first is held")
	case <-time.After(20 * time.Millisecond):
	}

	otherDone := make(chan struct{})
	go func() {
		locks.Lock("b")()
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("a different id should not block")
	}

	unlock()
	unlock()
	<-acquired

	if locks.size() != 0 {
		t.Errorf("expected no retained locks, got %d", locks.size())
	}
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticates once for concurrent callers", func(t *testing.T) {
		fake := tu.NewFakePlatform(fakeName)
		s := newSession(fake)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.ensure(ctx); err != nil {
					t.Errorf("ensure failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if fake.Calls("authenticate") != 1 {
			t.Errorf("expected a single authentication, got %d", fake.Calls("authenticate"))
		}
	})

	t.Run("auth errors invalidate", func(t *testing.T) {
		fake := tu.NewFakePlatform(fakeName)
		s := newSession(fake)
		_ = s.ensure(ctx)

		s.observe(tu.PlatformErr(services.KindTransient))
		if !s.isReady() {
			t.Error("non-auth errors should keep the session")
		}

		s.observe(tu.PlatformErr(services.KindAuth))
		if s.isReady() {
			t.Error("auth errors should drop the session")
		}
	})
}
