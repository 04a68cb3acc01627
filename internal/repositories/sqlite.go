package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// SQLiteStore keeps playlists in the playlists table: summary columns for listing plus the full record as JSON.
//
// It also records sync history in sync_runs.
type SQLiteStore struct {
	db       *sql.DB
	location string
}

// NewSQLiteStore wraps a migrated database.
func NewSQLiteStore(db *sql.DB, location string) *SQLiteStore {
	return &SQLiteStore{db: db, location: location}
}

// Location returns the database path.
func (s *SQLiteStore) Location() string { return s.location }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get retrieves a playlist by ID
func (s *SQLiteStore) Get(id string) (*models.Playlist, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM playlists WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	var p models.Playlist
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptRecord, id, err)
	}
	if p.Tracks == nil {
		p.Tracks = []models.Track{}
	}
	return &p, nil
}

// Put inserts or replaces the playlist in a single transaction.
func (s *SQLiteStore) Put(p *models.Playlist) error {
	if p == nil {
		return fmt.Errorf("%w: playlist is nil", shared.ErrInvalidArgument)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	tags, err := json.Marshal(nonNilTags(p.Tags))
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	links, err := json.Marshal(nonNilLinks(p.PlatformIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal platform ids: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO playlists (id, name, description, track_count, tags, platform_ids, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			track_count = excluded.track_count,
			tags = excluded.tags,
			platform_ids = excluded.platform_ids,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	_, err = tx.Exec(query,
		p.ID,
		p.Name,
		p.Description,
		len(p.Tracks),
		string(tags),
		string(links),
		string(data),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert playlist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// Delete removes the playlist and its sync history.
func (s *SQLiteStore) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	if _, err := tx.Exec("DELETE FROM sync_runs WHERE playlist_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete sync history: %w", err)
	}
	return tx.Commit()
}

// List returns index entries ordered by creation time, then id.
func (s *SQLiteStore) List() ([]models.IndexEntry, error) {
	query := `
		SELECT id, name, track_count, tags, platform_ids, created_at, updated_at
		FROM playlists
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	entries := []models.IndexEntry{}
	for rows.Next() {
		var (
			e           models.IndexEntry
			tags, links string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.TrackCount, &tags, &links, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, fmt.Errorf("%w: tags for %s: %v", shared.ErrCorruptRecord, e.ID, err)
		}
		if err := json.Unmarshal([]byte(links), &e.PlatformIDs); err != nil {
			return nil, fmt.Errorf("%w: platform ids for %s: %v", shared.ErrCorruptRecord, e.ID, err)
		}
		if len(e.Tags) == 0 {
			e.Tags = nil
		}
		if len(e.PlatformIDs) == 0 {
			e.PlatformIDs = nil
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// RecordSync appends a completed sync to the history.
func (s *SQLiteStore) RecordSync(run models.SyncRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}

	query := `
		INSERT INTO sync_runs (id, playlist_id, platform, direction, remote_id, synced, skipped, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ID, run.PlaylistID, run.Platform, run.Direction, run.RemoteID, run.Synced, run.Skipped, run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

// History lists the recorded syncs for a playlist, newest first.
func (s *SQLiteStore) History(playlistID string) ([]models.SyncRun, error) {
	query := `
		SELECT id, playlist_id, platform, direction, remote_id, synced, skipped, finished_at
		FROM sync_runs
		WHERE playlist_id = ?
		ORDER BY finished_at DESC
	`

	rows, err := s.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.ID, &r.PlaylistID, &r.Platform, &r.Direction, &r.RemoteID, &r.Synced, &r.Skipped, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilLinks(links map[string]string) map[string]string {
	if links == nil {
		return map[string]string{}
	}
	return links
}
