// package repositories provides the local playlist store implementations.
package repositories

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// PlaylistStore persists playlists keyed by id and keeps an index for listing.
//
// A single Put is atomic: readers never observe a half-written record. Ordering across calls for the same id is the
// caller's responsibility.
type PlaylistStore interface {
	Get(id string) (*models.Playlist, error)
	Put(p *models.Playlist) error
	List() ([]models.IndexEntry, error)
	Delete(id string) error
	Location() string
	Close() error
}

// SyncHistory is implemented by stores that keep a log of completed syncs.
type SyncHistory interface {
	RecordSync(run models.SyncRun) error
	History(playlistID string) ([]models.SyncRun, error)
}

// Store drivers accepted by [Open].
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open creates the store selected by cfg.Driver, applying migrations for the sqlite driver.
func Open(cfg shared.StorageConfig) (PlaylistStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		return NewFileStore(cfg.Dir)
	case DriverSQLite:
		path := cfg.Database
		if path == "" {
			path = filepath.Join(cfg.Dir, "plylist.db")
		}

		db, err := shared.NewDatabase(path)
		if err != nil {
			return nil, err
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLiteStore(db, path), nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
