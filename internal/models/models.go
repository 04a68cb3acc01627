package models

import "time"

// Platform names used as PlatformIDs keys.
const (
	AppleMusic = "apple_music"
)

// IndexEntry summarizes a [Playlist] for listing and status computation.
type IndexEntry struct {
	ID          string            `json:"playlist_id"`
	Name        string            `json:"name"`
	TrackCount  int               `json:"track_count"`
	Tags        []string          `json:"tags,omitempty"`
	PlatformIDs map[string]string `json:"platform_ids,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Synced reports whether the entry has a non-empty sync link for platform.
func (e IndexEntry) Synced(platform string) bool {
	return e.PlatformIDs[platform] != ""
}

// Entry builds the index summary for p.
func (p *Playlist) Entry() IndexEntry {
	return IndexEntry{
		ID:          p.ID,
		Name:        p.Name,
		TrackCount:  len(p.Tracks),
		Tags:        append([]string(nil), p.Tags...),
		PlatformIDs: cloneMap(p.PlatformIDs),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sync directions recorded in [SyncRun].
const (
	DirectionTo   = "to"
	DirectionFrom = "from"
)

// SyncRun is one completed sync of a playlist against a platform.
type SyncRun struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	Platform   string    `json:"platform"`
	Direction  string    `json:"direction"`
	RemoteID   string    `json:"remote_id"`
	Synced     int       `json:"synced"`
	Skipped    int       `json:"skipped"`
	FinishedAt time.Time `json:"finished_at"`
}
