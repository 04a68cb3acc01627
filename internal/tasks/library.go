package tasks

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/repositories"
	"github.com/desertthunder/plylist/internal/shared"
)

// Library implements the local playlist operations on top of a [repositories.PlaylistStore].
//
// Every mutation holds the playlist's id lock, which the [SyncEngine] shares.
type Library struct {
	store  repositories.PlaylistStore
	locks  *idLocks
	logger *log.Logger
}

// Stats summarizes the library.
type Stats struct {
	Playlists    int            `json:"playlists"`
	Tracks       int            `json:"tracks"`
	Synced       map[string]int `json:"synced"`
	Location     string         `json:"location"`
	StorageBytes int64          `json:"storage_bytes"`
}

// NewLibrary wraps store. A nil logger discards output.
func NewLibrary(store repositories.PlaylistStore, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Library{store: store, locks: newIDLocks(), logger: logger}
}

// Store returns the underlying store.
func (l *Library) Store() repositories.PlaylistStore { return l.store }

// update loads id under its lock, applies fn, and saves the result.
func (l *Library) update(id string, fn func(p *models.Playlist) error) (*models.Playlist, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	p, err := l.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := l.store.Put(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create saves a new empty playlist.
func (l *Library) Create(name, description string, tags []string) (*models.Playlist, error) {
	p := models.NewPlaylist(name, description)
	for _, tag := range tags {
		p.AddTag(tag)
	}
	if err := l.store.Put(p); err != nil {
		return nil, err
	}
	l.logger.Debug("created playlist", "id", p.ID, "name", p.Name)
	return p, nil
}

// Get loads a playlist by id.
func (l *Library) Get(id string) (*models.Playlist, error) {
	return l.store.Get(id)
}

// List returns the index entries of every playlist.
func (l *Library) List() ([]models.IndexEntry, error) {
	return l.store.List()
}

// Search filters playlists by a case-insensitive substring of name, description or tag, and by tags (any of).
// An empty query or empty tag list does not filter.
func (l *Library) Search(query string, tags []string) ([]models.IndexEntry, error) {
	entries, err := l.store.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := []models.IndexEntry{}
	for _, entry := range entries {
		if len(tags) > 0 && !hasAnyTag(entry.Tags, tags) {
			continue
		}
		if query != "" {
			ok, err := l.matches(entry, query)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (l *Library) matches(entry models.IndexEntry, query string) (bool, error) {
	if strings.Contains(strings.ToLower(entry.Name), query) {
		return true, nil
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true, nil
		}
	}

	p, err := l.store.Get(entry.ID)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(p.Description), query), nil
}

func hasAnyTag(have, want []string) bool {
	p := models.Playlist{Tags: have}
	return p.HasAnyTag(want...)
}

// Delete removes a playlist.
func (l *Library) Delete(id string) error {
	unlock := l.locks.Lock(id)
	defer unlock()

	if err := l.store.Delete(id); err != nil {
		return err
	}
	l.logger.Debug("deleted playlist", "id", id)
	return nil
}

// Rename sets a new, non-empty name.
func (l *Library) Rename(id, name string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", shared.ErrMissingArgument)
	}
	return l.update(id, func(p *models.Playlist) error {
		p.Name = name
		p.Touch()
		return nil
	})
}

// SetDescription replaces the description.
func (l *Library) SetDescription(id, description string) (*models.Playlist, error) {
	return l.update(id, func(p *models.Playlist) error {
		p.Description = strings.TrimSpace(description)
		p.Touch()
		return nil
	})
}

// Tag adds then removes tags.
func (l *Library) Tag(id string, add, remove []string) (*models.Playlist, error) {
	return l.update(id, func(p *models.Playlist) error {
		for _, tag := range add {
			p.AddTag(tag)
		}
		for _, tag := range remove {
			p.RemoveTag(tag)
		}
		return nil
	})
}

// AddTrack inserts t at position (0-based). A negative position appends.
func (l *Library) AddTrack(id string, t models.Track, position int) (models.Track, error) {
	if err := t.Validate(); err != nil {
		return models.Track{}, err
	}

	var added models.Track
	_, err := l.update(id, func(p *models.Playlist) error {
		if position < 0 {
			added = p.AddTrack(t)
			return nil
		}
		var err error
		added, err = p.InsertTrack(position, t)
		return err
	})
	return added, err
}

// RemoveTrack removes the track with trackID.
func (l *Library) RemoveTrack(id, trackID string) (models.Track, error) {
	var removed models.Track
	_, err := l.update(id, func(p *models.Playlist) error {
		var err error
		removed, err = p.RemoveTrack(trackID)
		return err
	})
	return removed, err
}

// MoveTrack moves a track between 0-based positions.
func (l *Library) MoveTrack(id string, from, to int) (*models.Playlist, error) {
	return l.update(id, func(p *models.Playlist) error {
		return p.MoveTrack(from, to)
	})
}

// Duplicate copies a playlist under new ids without sync links. An empty name becomes "Copy of <name>".
func (l *Library) Duplicate(id, name string) (*models.Playlist, error) {
	src, err := l.store.Get(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Copy of " + src.Name
	}

	dup := src.Duplicate(name)
	if err := l.store.Put(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// Merge concatenates the tracks of ids, in order, into a new playlist.
//
// Tracks are deduplicated on their normalized title and artist unless keepDuplicates is set. Unknown ids are
// skipped with a warning. Merged tracks get fresh ids but keep their catalog links.
func (l *Library) Merge(ids []string, name string, keepDuplicates bool) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name", shared.ErrMissingArgument)
	}

	merged := models.NewPlaylist(name, "")
	seen := make(map[string]bool)
	sources := []string{}

	for _, id := range ids {
		src, err := l.store.Get(id)
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			l.logger.Warn("skipping unknown playlist", "id", id)
			continue
		} else if err != nil {
			return nil, err
		}

		sources = append(sources, src.Name)
		for _, tag := range src.Tags {
			merged.AddTag(tag)
		}
		for _, t := range src.Tracks {
			key := t.Key()
			if !keepDuplicates && seen[key] {
				continue
			}
			seen[key] = true

			c := t.Clone()
			c.ID = ""
			merged.AddTrack(c)
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: none of %s exist", shared.ErrNothingToMerge, strings.Join(ids, ", "))
	}

	merged.Description = "Merged from " + strings.Join(sources, ", ")
	if err := l.store.Put(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Export writes playlist id to w in format f.
func (l *Library) Export(id string, w io.Writer, f formatter.Format) error {
	p, err := l.store.Get(id)
	if err != nil {
		return err
	}
	return formatter.Encode(w, p, f)
}

// ExportFile writes playlist id to path. An empty format is taken from the file extension.
func (l *Library) ExportFile(id, path string, f formatter.Format) error {
	if f == "" {
		f = formatter.FormatFromPath(path)
	}
	if _, err := formatter.ParseFormat(string(f)); err != nil {
		return err
	}

	p, err := l.store.Get(id)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := formatter.Encode(file, p, f); err != nil {
		return err
	}
	return file.Close()
}

// Import reads a playlist in format f and saves it.
//
// JSON keeps the record's ids unless newID is set, in which case the playlist and its tracks get fresh ids and
// lose their sync links; importing over an existing id is refused. CSV always creates
// a new playlist named name. A non-empty name also renames a JSON import.
func (l *Library) Import(r io.Reader, f formatter.Format, name string, newID bool) (*models.Playlist, error) {
	p, err := formatter.Decode(r, f, name)
	if err != nil {
		return nil, err
	}

	if f == formatter.JSON {
		if strings.TrimSpace(name) != "" {
			p.Name = strings.TrimSpace(name)
		}
		if newID {
			p = p.Duplicate(p.Name)
		}
	}

	unlock := l.locks.Lock(p.ID)
	defer unlock()

	if _, err := l.store.Get(p.ID); err == nil {
		return nil, fmt.Errorf("%w: playlist %s already exists (import with a new id)", shared.ErrInvalidInput, p.ID)
	} else if !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}

	if err := l.store.Put(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ImportFile imports path. An empty format is taken from the extension, and CSV playlists are named after the
// file when name is empty.
func (l *Library) ImportFile(path string, f formatter.Format, name string, newID bool) (*models.Playlist, error) {
	if f == "" {
		f = formatter.FormatFromPath(path)
	}
	if !f.Importable() {
		return nil, fmt.Errorf("%w: cannot import %q", shared.ErrUnsupportedFormat, f)
	}
	if f == formatter.CSV && strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return l.Import(file, f, name, newID)
}

// Stats counts playlists, tracks, and sync links per platform.
func (l *Library) Stats() (*Stats, error) {
	entries, err := l.store.List()
	if err != nil {
		return nil, err
	}

	s := &Stats{Playlists: len(entries), Synced: make(map[string]int), Location: l.store.Location()}
	for _, entry := range entries {
		s.Tracks += entry.TrackCount
		for platform := range entry.PlatformIDs {
			s.Synced[platform]++
		}
	}
	s.StorageBytes = diskUsage(s.Location)
	return s, nil
}

// diskUsage sums file sizes under path; unreadable entries count as zero.
func diskUsage(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && !d.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
