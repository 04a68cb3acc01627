package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const (
	playlistDir = "playlists"
	indexFile   = "index.json"
)

// FileStore keeps one JSON file per playlist under dir/playlists and a summary index in dir/index.json.
type FileStore struct {
	dir   string
	mu    sync.Mutex
	index map[string]models.IndexEntry
}

// NewFileStore creates the store directory layout under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: storage dir is empty", shared.ErrInvalidConfig)
	}

	dir = shared.ExpandPath(dir)
	if err := os.MkdirAll(filepath.Join(dir, playlistDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Location returns the store directory.
func (s *FileStore) Location() string { return s.dir }

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.dir, playlistDir, id+".json")
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: playlist id %q", shared.ErrInvalidArgument, id)
	}
	return nil
}

// Get reads the playlist record for id.
func (s *FileStore) Get(id string) (*models.Playlist, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.recordPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read playlist %s: %w", id, err)
	}

	var p models.Playlist
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptRecord, id, err)
	}
	if p.Tracks == nil {
		p.Tracks = []models.Track{}
	}
	return &p, nil
}

// Put overwrites the record for p.ID, then its index entry.
func (s *FileStore) Put(p *models.Playlist) error {
	if p == nil {
		return fmt.Errorf("%w: playlist is nil", shared.ErrInvalidArgument)
	}
	if err := validID(p.ID); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	if err := writeAtomic(s.recordPath(p.ID), data); err != nil {
		return fmt.Errorf("failed to write playlist %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(); err != nil {
		return err
	}
	s.index[p.ID] = p.Entry()
	return s.saveIndex()
}

// Delete removes the record and its index entry.
func (s *FileStore) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	} else if err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}

	if err := s.loadIndex(); err != nil {
		return err
	}
	delete(s.index, id)
	return s.saveIndex()
}

// List returns index entries ordered by creation time, then id.
func (s *FileStore) List() ([]models.IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndex(); err != nil {
		return nil, err
	}

	entries := make([]models.IndexEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []models.IndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// loadIndex populates the cached index from index.json, rebuilding it from the records when the file is missing or
// unreadable. Callers hold s.mu.
func (s *FileStore) loadIndex() error {
	if s.index != nil {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err == nil {
		var index map[string]models.IndexEntry
		if json.Unmarshal(data, &index) == nil && index != nil {
			s.index = index
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read index: %w", err)
	}
	return s.rebuildIndex()
}

func (s *FileStore) rebuildIndex() error {
	files, err := os.ReadDir(filepath.Join(s.dir, playlistDir))
	if err != nil {
		return fmt.Errorf("failed to read playlist directory: %w", err)
	}

	index := make(map[string]models.IndexEntry, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}

		p, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		index[p.ID] = p.Entry()
	}

	s.index = index
	return s.saveIndex()
}

func (s *FileStore) saveIndex() error {
	data, err := shared.MarshalJSON(s.index, true)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, indexFile), data); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
