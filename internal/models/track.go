package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// Track is a song in a platform-agnostic form.
//
// DurationMS is zero when unknown.
type Track struct {
	ID                string            `json:"track_id"`
	Title             string            `json:"title"`
	Artist            string            `json:"artist"`
	Album             string            `json:"album,omitempty"`
	DurationMS        int               `json:"duration_ms,omitempty"`
	ISRC              string            `json:"isrc,omitempty"`
	AdditionalArtists []string          `json:"additional_artists,omitempty"`
	PlatformIDs       map[string]string `json:"platform_ids,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	AddedAt           time.Time         `json:"added_at"`
}

// NewTrack creates a track with a fresh id.
func NewTrack(title, artist string) Track {
	return Track{
		ID:      shared.GenerateID(),
		Title:   strings.TrimSpace(title),
		Artist:  strings.TrimSpace(artist),
		AddedAt: time.Now().UTC(),
	}
}

// Key returns the normalized (title, artist) key used for matching and de-duplication.
func (t Track) Key() string {
	return shared.NormalizeTrackKey(t.Title, t.Artist)
}

// Matches compares by ISRC when both tracks carry one, otherwise by normalized title and artist.
func (t Track) Matches(other Track) bool {
	if t.ISRC != "" && other.ISRC != "" {
		return strings.EqualFold(t.ISRC, other.ISRC)
	}
	return t.Key() == other.Key()
}

// PlatformID returns the catalog id recorded for platform.
func (t Track) PlatformID(platform string) (string, bool) {
	id, ok := t.PlatformIDs[platform]
	return id, ok && id != ""
}

// SetPlatformID records a verified catalog match.
func (t *Track) SetPlatformID(platform, id string) {
	if t.PlatformIDs == nil {
		t.PlatformIDs = make(map[string]string)
	}
	t.PlatformIDs[platform] = id
}

// Clone returns a deep copy that shares no maps or slices with t.
func (t Track) Clone() Track {
	c := t
	c.AdditionalArtists = append([]string(nil), t.AdditionalArtists...)
	c.PlatformIDs = cloneMap(t.PlatformIDs)
	c.Metadata = cloneMap(t.Metadata)
	return c
}

// Validate checks required fields.
func (t Track) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: track title is required", shared.ErrInvalidInput)
	case strings.TrimSpace(t.Artist) == "":
		return fmt.Errorf("%w: track artist is required", shared.ErrInvalidInput)
	case t.DurationMS < 0:
		return fmt.Errorf("%w: duration must not be negative", shared.ErrInvalidInput)
	}
	return nil
}

func (t Track) String() string {
	artists := strings.Join(append([]string{t.Artist}, t.AdditionalArtists...), ", ")
	if t.Album != "" {
		return fmt.Sprintf("%s by %s (from %s)", t.Title, artists, t.Album)
	}
	return fmt.Sprintf("%s by %s", t.Title, artists)
}
