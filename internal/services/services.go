// package services defines the Platform capability interface and the platform registry
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Platform is the capability set the sync engine needs from a streaming service.
//
// Failures are reported as [*PlatformError]; context cancellation is returned unwrapped.
type Platform interface {
	// Name returns the key used in PlatformIDs maps.
	Name() string

	// Authenticate acquires credentials for subsequent calls.
	Authenticate(ctx context.Context) error

	// SearchTrack returns the best catalog match with PlatformIDs[Name()] set,
	// or a [KindNotFound] error when nothing matches.
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)

	// ListRemotePlaylists returns the user's library playlists without tracks.
	ListRemotePlaylists(ctx context.Context) ([]RemotePlaylist, error)

	// CreateRemotePlaylist creates an empty library playlist and returns its id.
	CreateRemotePlaylist(ctx context.Context, name, description string) (string, error)

	// ReplaceRemotePlaylistTracks sets the playlist's tracks to trackIDs, in order.
	ReplaceRemotePlaylistTracks(ctx context.Context, remoteID string, trackIDs []string) (*ReplaceResult, error)

	// FetchRemotePlaylist returns the playlist with its tracks in remote order.
	FetchRemotePlaylist(ctx context.Context, remoteID string) (*RemotePlaylist, error)

	// DeleteRemotePlaylist removes the playlist from the user's library.
	DeleteRemotePlaylist(ctx context.Context, remoteID string) error
}

// MetadataUpdater is implemented by platforms that can rename or re-describe an existing remote playlist.
type MetadataUpdater interface {
	UpdateRemotePlaylist(ctx context.Context, remoteID, name, description string) error
}

// RemotePlaylist is a playlist as the platform reports it.
type RemotePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tracks      []models.Track `json:"tracks,omitempty"`
}

// ReplaceResult reports how many track ids the platform accepted.
// A non-empty Rejected list is a partial failure.
type ReplaceResult struct {
	Accepted int      `json:"accepted"`
	Rejected []string `json:"rejected,omitempty"`
}

// Partial reports whether some ids were rejected.
func (r *ReplaceResult) Partial() bool {
	return r != nil && len(r.Rejected) > 0
}

// CanonicalName resolves a platform name or alias.
func CanonicalName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case models.AppleMusic, "apple", "applemusic", "apple-music", "am":
		return models.AppleMusic, nil
	default:
		return "", fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, name)
	}
}

// NewPlatform builds the named platform from config.
func NewPlatform(name string, cfg *shared.Config, logger *log.Logger) (Platform, error) {
	canonical, err := CanonicalName(name)
	if err != nil {
		return nil, err
	}

	switch canonical {
	case models.AppleMusic:
		return NewAppleMusicService(cfg.AppleMusic, AppleMusicOpts{Logger: logger}), nil
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, name)
	}
}
