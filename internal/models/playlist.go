package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
)

// Playlist is an ordered list of tracks with tags and sync links.
type Playlist struct {
	ID          string            `json:"playlist_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Tracks      []Track           `json:"tracks"`
	PlatformIDs map[string]string `json:"platform_ids,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewPlaylist creates an empty playlist with a fresh id and timestamps.
func NewPlaylist(name, description string) *Playlist {
	now := time.Now().UTC()
	return &Playlist{
		ID:          shared.GenerateID(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Tracks:      []Track{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch refreshes UpdatedAt.
func (p *Playlist) Touch() {
	now := time.Now().UTC()
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Nanosecond)
	}
	p.UpdatedAt = now
}

// Validate checks required fields and id uniqueness among the tracks.
func (p *Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(p.Tracks))
	for i, t := range p.Tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("track %d: %w", i+1, err)
		}
		if t.ID == "" || seen[t.ID] {
			return fmt.Errorf("%w: track %d has a missing or duplicate id", shared.ErrInvalidInput, i+1)
		}
		seen[t.ID] = true
	}
	return nil
}

// AddTrack appends t, assigning an id and added time when missing.
func (p *Playlist) AddTrack(t Track) Track {
	t = prepareTrack(t)
	p.Tracks = append(p.Tracks, t)
	p.Touch()
	return t
}

// InsertTrack places t at position (0-based); positions past the end append.
func (p *Playlist) InsertTrack(position int, t Track) (Track, error) {
	if position < 0 {
		return Track{}, fmt.Errorf("%w: position %d", shared.ErrIndexOutOfRange, position)
	}
	if position >= len(p.Tracks) {
		return p.AddTrack(t), nil
	}
	t = prepareTrack(t)
	p.Tracks = slices.Insert(p.Tracks, position, t)
	p.Touch()
	return t, nil
}

func prepareTrack(t Track) Track {
	if t.ID == "" {
		t.ID = shared.GenerateID()
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now().UTC()
	}
	return t
}

// TrackIndex returns the position of the track with trackID, or -1.
func (p *Playlist) TrackIndex(trackID string) int {
	return slices.IndexFunc(p.Tracks, func(t Track) bool { return t.ID == trackID })
}

// Track returns the track with trackID.
func (p *Playlist) Track(trackID string) (Track, bool) {
	if i := p.TrackIndex(trackID); i >= 0 {
		return p.Tracks[i], true
	}
	return Track{}, false
}

// RemoveTrack removes the track with trackID.
func (p *Playlist) RemoveTrack(trackID string) (Track, error) {
	i := p.TrackIndex(trackID)
	if i < 0 {
		return Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return p.RemoveTrackAt(i)
}

// RemoveTrackAt removes the track at index (0-based).
func (p *Playlist) RemoveTrackAt(index int) (Track, error) {
	if index < 0 || index >= len(p.Tracks) {
		return Track{}, fmt.Errorf("%w: %d of %d", shared.ErrIndexOutOfRange, index, len(p.Tracks))
	}
	removed := p.Tracks[index]
	p.Tracks = slices.Delete(p.Tracks, index, index+1)
	p.Touch()
	return removed, nil
}

// MoveTrack moves the track at from to position to (both 0-based).
func (p *Playlist) MoveTrack(from, to int) error {
	n := len(p.Tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d of %d", shared.ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	t := p.Tracks[from]
	p.Tracks = slices.Delete(p.Tracks, from, from+1)
	p.Tracks = slices.Insert(p.Tracks, to, t)
	p.Touch()
	return nil
}

// Clear removes every track.
func (p *Playlist) Clear() {
	p.Tracks = []Track{}
	p.Touch()
}

// AddTag adds a trimmed, non-empty tag once. Reports whether the tag was new.
func (p *Playlist) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(p.Tags, tag) {
		return false
	}
	p.Tags = append(p.Tags, tag)
	p.Touch()
	return true
}

// RemoveTag removes tag. Reports whether it was present.
func (p *Playlist) RemoveTag(tag string) bool {
	i := slices.Index(p.Tags, strings.TrimSpace(tag))
	if i < 0 {
		return false
	}
	p.Tags = slices.Delete(p.Tags, i, i+1)
	p.Touch()
	return true
}

// HasAnyTag reports whether the playlist carries at least one of tags (case-insensitive).
func (p *Playlist) HasAnyTag(tags ...string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// PlatformID returns the remote playlist id linked for platform.
func (p *Playlist) PlatformID(platform string) (string, bool) {
	id, ok := p.PlatformIDs[platform]
	return id, ok && id != ""
}

// SetPlatformID records the sync link for platform.
func (p *Playlist) SetPlatformID(platform, id string) {
	if p.PlatformIDs == nil {
		p.PlatformIDs = make(map[string]string)
	}
	p.PlatformIDs[platform] = id
	p.Touch()
}

// Unlink drops the sync link for platform along with every track match on it.
// Reports whether a playlist link existed.
func (p *Playlist) Unlink(platform string) bool {
	_, linked := p.PlatformIDs[platform]
	delete(p.PlatformIDs, platform)
	for i := range p.Tracks {
		delete(p.Tracks[i].PlatformIDs, platform)
	}
	p.Touch()
	return linked
}

// Duration sums the known track durations in milliseconds.
func (p *Playlist) Duration() int {
	total := 0
	for _, t := range p.Tracks {
		total += t.DurationMS
	}
	return total
}

// DurationString renders the total duration as "1h 23m 45s", "23m 45s" or "45s", and "Unknown" when zero.
func (p *Playlist) DurationString() string {
	total := p.Duration() / 1000
	if total == 0 {
		return "Unknown"
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Clone returns a deep copy keeping every id and timestamp.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.PlatformIDs = cloneMap(p.PlatformIDs)
	c.Metadata = cloneMap(p.Metadata)
	c.Tracks = make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		c.Tracks[i] = t.Clone()
	}
	return &c
}

// Duplicate returns a copy with fresh playlist and track ids, no sync links, and new timestamps.
func (p *Playlist) Duplicate(name string) *Playlist {
	dup := NewPlaylist(name, p.Description)
	dup.Tags = append([]string(nil), p.Tags...)
	dup.Metadata = cloneMap(p.Metadata)
	dup.Tracks = make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		c := t.Clone()
		c.ID = shared.GenerateID()
		c.PlatformIDs = nil
		dup.Tracks[i] = c
	}
	return dup
}

func (p *Playlist) String() string {
	return fmt.Sprintf("%s (%d tracks)", p.Name, len(p.Tracks))
}
