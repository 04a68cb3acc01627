package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/repositories"
	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
)

// SyncOpts tunes catalog lookups and remote calls.
//
// Replace, fetch and update calls retry on rate limits and transient failures. Creating a remote playlist retries
// on rate limits only: a create whose response was lost may still have succeeded, and a retry would leave a
// second remote playlist behind.
type SyncOpts struct {
	Workers    int           // Concurrent catalog lookups (default: 4)
	RateLimit  float64       // Catalog lookups per second (default: 10)
	MaxRetries int           // Retries after the first attempt of a retryable call (default: 3, negative disables)
	RetryWait  time.Duration // Base backoff, doubled per retry (default: 500ms)
	Timeout    time.Duration // Per remote call (default: 15s)
}

// DefaultSyncOpts returns the defaults applied to zero fields.
func DefaultSyncOpts() SyncOpts {
	return SyncOpts{Workers: 4, RateLimit: 10, MaxRetries: 3, RetryWait: 500 * time.Millisecond, Timeout: 15 * time.Second}
}

// SyncOptsFromConfig maps the [sync] config section onto [SyncOpts].
func SyncOptsFromConfig(cfg shared.SyncConfig) SyncOpts {
	return SyncOpts{
		Workers:    cfg.Workers,
		RateLimit:  cfg.RateLimit,
		MaxRetries: cfg.MaxRetries,
		RetryWait:  cfg.RetryWait.Duration,
		Timeout:    cfg.Timeout.Duration,
	}
}

func (o SyncOpts) withDefaults() SyncOpts {
	d := DefaultSyncOpts()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.RateLimit <= 0 {
		o.RateLimit = d.RateLimit
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = d.MaxRetries
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.RetryWait <= 0 {
		o.RetryWait = d.RetryWait
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// SkippedTrack is a local track left out of the remote mirror.
type SkippedTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// SyncReport summarizes one sync of a playlist.
type SyncReport struct {
	LocalID  string         `json:"local_id"`
	Platform string         `json:"platform"`
	RemoteID string         `json:"remote_id"`
	Created  bool           `json:"created"`  // a remote playlist was created by this sync
	Synced   int            `json:"synced"`   // tracks in the remote mirror (or imported, for inbound syncs)
	Skipped  []SkippedTrack `json:"skipped"`  // unmatched tracks, in local order
	Rejected []string       `json:"rejected"` // remote ids the platform refused
	Reused   int            `json:"reused"`   // matches taken from existing track links
	Searched int            `json:"searched"` // matches found by catalog search
}

// SyncAllResult collects the outcome of [SyncEngine.SyncAll].
type SyncAllResult struct {
	Reports []*SyncReport    `json:"reports"`
	Failed  map[string]error `json:"-"`
}

// PlatformStatus partitions local playlists by whether they carry a sync link for Platform.
type PlatformStatus struct {
	Platform  string              `json:"platform"`
	Synced    []models.IndexEntry `json:"synced"`
	LocalOnly []models.IndexEntry `json:"local_only"`
}

// SyncEngine mirrors local playlists to platforms and imports remote playlists.
//
// Each platform gets an engine-owned authentication session. Writes to a playlist hold the same per-id lock as
// the [Library] the engine was built from.
type SyncEngine struct {
	lib      *Library
	opts     SyncOpts
	logger   *log.Logger
	sessions map[string]*session
	names    []string
}

// NewSyncEngine creates an engine over lib for the given platforms.
func NewSyncEngine(lib *Library, opts SyncOpts, platforms ...services.Platform) *SyncEngine {
	e := &SyncEngine{
		lib:      lib,
		opts:     opts.withDefaults(),
		logger:   lib.logger,
		sessions: make(map[string]*session, len(platforms)),
	}
	for _, p := range platforms {
		e.sessions[p.Name()] = newSession(p)
		e.names = append(e.names, p.Name())
	}
	sort.Strings(e.names)
	return e
}

// Platforms returns the registered platform names.
func (e *SyncEngine) Platforms() []string {
	return slices.Clone(e.names)
}

func (e *SyncEngine) session(platform string) (*session, error) {
	if s, ok := e.sessions[platform]; ok {
		return s, nil
	}
	if canonical, err := services.CanonicalName(platform); err == nil {
		if s, ok := e.sessions[canonical]; ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, platform)
}

// Authenticate acquires (or reuses) the platform session.
func (e *SyncEngine) Authenticate(ctx context.Context, platform string) error {
	s, err := e.session(platform)
	if err != nil {
		return err
	}
	return e.authenticate(ctx, s)
}

func (e *SyncEngine) authenticate(ctx context.Context, s *session) error {
	if err := s.ensure(ctx); err != nil {
		return fmt.Errorf("authenticate with %s: %w", s.platform.Name(), err)
	}
	return nil
}

// SyncTo mirrors the local playlist localID onto platform.
//
// The first sync creates the remote playlist; later syncs reuse the stored link. The remote track list is
// replaced wholesale with the matched tracks in local order. The local record is written only after the remote
// calls succeed, so a failed or cancelled sync leaves it untouched.
func (e *SyncEngine) SyncTo(ctx context.Context, localID, platform string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	s, err := e.session(platform)
	if err != nil {
		return nil, err
	}
	name := s.platform.Name()

	unlock := e.lib.locks.Lock(localID)
	defer unlock()

	sendProgress(progress, loadPlaylistUpdate(1, 1, localID))
	stored, err := e.lib.store.Get(localID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, authenticateUpdate(name))
	if err := e.authenticate(ctx, s); err != nil {
		return nil, err
	}

	logger := shared.WithLogger(e.logger, "playlist", localID, "platform", name)
	logger.Info("sync started", "direction", models.DirectionTo, "tracks", len(stored.Tracks))

	p := stored.Clone()
	report := &SyncReport{LocalID: localID, Platform: name, Skipped: []SkippedTrack{}, Rejected: []string{}}

	ids, err := e.resolveTracks(ctx, s, p, report, progress)
	if err != nil {
		return nil, err
	}

	remoteID, linked := p.PlatformID(name)
	if !linked {
		sendProgress(progress, createRemoteUpdate(p.Name))
		err := e.call(ctx, s, "create", isRateLimited, func(ctx context.Context) error {
			id, err := s.platform.CreateRemotePlaylist(ctx, p.Name, p.Description)
			remoteID = id
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("create remote playlist for %s on %s: %w", localID, name, err)
		}
		p.SetPlatformID(name, remoteID)
		report.Created = true
	} else if updater, ok := s.platform.(services.MetadataUpdater); ok {
		sendProgress(progress, updateRemoteUpdate(remoteID))
		err := e.call(ctx, s, "update", services.IsRetryable, func(ctx context.Context) error {
			return updater.UpdateRemotePlaylist(ctx, remoteID, p.Name, p.Description)
		})
		if err != nil {
			return nil, fmt.Errorf("update remote playlist %s on %s: %w", remoteID, name, err)
		}
	}
	report.RemoteID = remoteID

	sendProgress(progress, replaceTracksUpdate(remoteID, len(ids)))
	var result *services.ReplaceResult
	err = e.call(ctx, s, "replace", services.IsRetryable, func(ctx context.Context) error {
		r, err := s.platform.ReplaceRemotePlaylistTracks(ctx, remoteID, ids)
		result = r
		return err
	})
	if err != nil {
		if report.Created {
			logger.Warn("remote playlist created but not filled", "remote_id", remoteID)
		}
		return nil, fmt.Errorf("replace tracks of %s on %s: %w", remoteID, name, err)
	}

	report.Synced = len(ids)
	if result.Partial() {
		report.Rejected = append(report.Rejected, result.Rejected...)
		report.Synced = len(ids) - countRejected(ids, result.Rejected)
		forgetRejected(p, name, result.Rejected)
		logger.Warn("platform rejected tracks", "remote_id", remoteID, "rejected", len(result.Rejected))
	}

	p.Touch()
	sendProgress(progress, savePlaylistUpdate(p))
	if err := e.lib.store.Put(p); err != nil {
		return nil, fmt.Errorf("save playlist %s after sync: %w", localID, err)
	}

	e.recordSync(models.SyncRun{
		PlaylistID: localID,
		Platform:   name,
		Direction:  models.DirectionTo,
		RemoteID:   remoteID,
		Synced:     report.Synced,
		Skipped:    len(report.Skipped),
	})

	logger.Info("sync finished", "remote_id", remoteID, "synced", report.Synced, "skipped", len(report.Skipped))
	return report, nil
}

// forgetRejected drops track links the platform refused so the next sync looks them up again.
// countRejected counts the positions of ids holding a rejected id, so a catalog id used twice counts twice.
func countRejected(ids, rejected []string) int {
	n := 0
	for _, id := range ids {
		if slices.Contains(rejected, id) {
			n++
		}
	}
	return n
}

func forgetRejected(p *models.Playlist, platform string, rejected []string) {
	for i := range p.Tracks {
		if id, ok := p.Tracks[i].PlatformID(platform); ok && slices.Contains(rejected, id) {
			delete(p.Tracks[i].PlatformIDs, platform)
		}
	}
}

// SyncFrom imports the remote playlist remoteID as a new local playlist linked to it.
func (e *SyncEngine) SyncFrom(ctx context.Context, platform, remoteID string, progress chan<- ProgressUpdate) (*SyncReport, error) {
	s, err := e.session(platform)
	if err != nil {
		return nil, err
	}
	name := s.platform.Name()

	sendProgress(progress, authenticateUpdate(name))
	if err := e.authenticate(ctx, s); err != nil {
		return nil, err
	}

	sendProgress(progress, fetchRemoteUpdate(remoteID))
	var remote *services.RemotePlaylist
	err = e.call(ctx, s, "fetch", services.IsRetryable, func(ctx context.Context) error {
		r, err := s.platform.FetchRemotePlaylist(ctx, remoteID)
		remote = r
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch remote playlist %s from %s: %w", remoteID, name, err)
	}

	title := strings.TrimSpace(remote.Name)
	if title == "" {
		title = fmt.Sprintf("%s %s", name, remoteID)
	}
	p := models.NewPlaylist(title, remote.Description)
	for _, rt := range remote.Tracks {
		t := rt.Clone()
		t.ID = ""
		if strings.TrimSpace(t.Title) == "" {
			t.Title = "Unknown Title"
		}
		if strings.TrimSpace(t.Artist) == "" {
			t.Artist = "Unknown Artist"
		}
		p.AddTrack(t)
	}
	p.SetPlatformID(name, remoteID)

	sendProgress(progress, savePlaylistUpdate(p))
	if err := e.lib.store.Put(p); err != nil {
		return nil, fmt.Errorf("save imported playlist: %w", err)
	}

	e.recordSync(models.SyncRun{
		PlaylistID: p.ID,
		Platform:   name,
		Direction:  models.DirectionFrom,
		RemoteID:   remoteID,
		Synced:     len(p.Tracks),
	})

	e.logger.Info("sync finished", "direction", models.DirectionFrom, "playlist", p.ID, "platform", name, "remote_id", remoteID, "synced", len(p.Tracks))
	return &SyncReport{
		LocalID:  p.ID,
		Platform: name,
		RemoteID: remoteID,
		Synced:   len(p.Tracks),
		Skipped:  []SkippedTrack{},
		Rejected: []string{},
	}, nil
}

func (e *SyncEngine) recordSync(run models.SyncRun) {
	history, ok := e.lib.store.(repositories.SyncHistory)
	if !ok {
		return
	}
	run.FinishedAt = time.Now().UTC()
	if err := history.RecordSync(run); err != nil {
		e.logger.Warn("failed to record sync", "playlist", run.PlaylistID, "error", err)
	}
}

// SyncAll runs [SyncEngine.SyncTo] for every local playlist in index order.
//
// Per-playlist failures are collected; authentication failures and cancellation stop the run.
func (e *SyncEngine) SyncAll(ctx context.Context, platform string, progress chan<- ProgressUpdate) (*SyncAllResult, error) {
	if _, err := e.session(platform); err != nil {
		return nil, err
	}

	entries, err := e.lib.store.List()
	if err != nil {
		return nil, err
	}

	result := &SyncAllResult{Reports: []*SyncReport{}, Failed: make(map[string]error)}
	for i, entry := range entries {
		sendProgress(progress, loadPlaylistUpdate(i+1, len(entries), entry.Name))

		report, err := e.SyncTo(ctx, entry.ID, platform, progress)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if isAuthError(err) {
				return result, err
			}
			e.logger.Error("sync failed", "playlist", entry.ID, "error", err)
			result.Failed[entry.ID] = err
			continue
		}
		result.Reports = append(result.Reports, report)
	}
	return result, nil
}

func isAuthError(err error) bool {
	if services.KindOf(err) == services.KindAuth {
		return true
	}
	for _, target := range []error{shared.ErrAuthFailed, shared.ErrMissingCredentials, shared.ErrInvalidCredentials, shared.ErrNotAuthenticated} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Status partitions every local playlist into synced and local-only for each registered platform.
// It reads only the store index.
func (e *SyncEngine) Status() ([]PlatformStatus, error) {
	entries, err := e.lib.store.List()
	if err != nil {
		return nil, err
	}

	out := make([]PlatformStatus, 0, len(e.names))
	for _, name := range e.names {
		st := PlatformStatus{Platform: name, Synced: []models.IndexEntry{}, LocalOnly: []models.IndexEntry{}}
		for _, entry := range entries {
			if entry.Synced(name) {
				st.Synced = append(st.Synced, entry)
			} else {
				st.LocalOnly = append(st.LocalOnly, entry)
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// Unlink removes the sync link (and track links) for platform so the next sync creates a new remote playlist.
// Reports whether a link existed.
func (e *SyncEngine) Unlink(localID, platform string) (bool, error) {
	s, err := e.session(platform)
	if err != nil {
		return false, err
	}

	var linked bool
	_, err = e.lib.update(localID, func(p *models.Playlist) error {
		linked = p.Unlink(s.platform.Name())
		return nil
	})
	return linked, err
}

// DeleteRemote deletes the remote mirror of localID and unlinks it. It returns the deleted remote id.
// A remote playlist that is already gone still unlinks.
func (e *SyncEngine) DeleteRemote(ctx context.Context, localID, platform string) (string, error) {
	s, err := e.session(platform)
	if err != nil {
		return "", err
	}
	name := s.platform.Name()

	unlock := e.lib.locks.Lock(localID)
	defer unlock()

	p, err := e.lib.store.Get(localID)
	if err != nil {
		return "", err
	}
	remoteID, ok := p.PlatformID(name)
	if !ok {
		return "", fmt.Errorf("%w: playlist %s is not synced to %s", shared.ErrInvalidArgument, localID, name)
	}

	if err := e.authenticate(ctx, s); err != nil {
		return "", err
	}
	err = e.call(ctx, s, "delete", services.IsRetryable, func(ctx context.Context) error {
		return s.platform.DeleteRemotePlaylist(ctx, remoteID)
	})
	if err != nil && services.KindOf(err) != services.KindNotFound {
		return "", fmt.Errorf("delete remote playlist %s on %s: %w", remoteID, name, err)
	}

	p.Unlink(name)
	if err := e.lib.store.Put(p); err != nil {
		return "", err
	}
	e.logger.Info("deleted remote playlist", "playlist", localID, "platform", name, "remote_id", remoteID)
	return remoteID, nil
}

// ListRemote returns the user's playlists on platform.
func (e *SyncEngine) ListRemote(ctx context.Context, platform string) ([]services.RemotePlaylist, error) {
	s, err := e.session(platform)
	if err != nil {
		return nil, err
	}
	if err := e.authenticate(ctx, s); err != nil {
		return nil, err
	}

	var out []services.RemotePlaylist
	err = e.call(ctx, s, "list", services.IsRetryable, func(ctx context.Context) error {
		l, err := s.platform.ListRemotePlaylists(ctx)
		out = l
		return err
	})
	return out, err
}

// Search looks up a single catalog match on platform.
func (e *SyncEngine) Search(ctx context.Context, platform, title, artist string) (*models.Track, error) {
	s, err := e.session(platform)
	if err != nil {
		return nil, err
	}
	if err := e.authenticate(ctx, s); err != nil {
		return nil, err
	}

	var match *models.Track
	err = e.call(ctx, s, "search", services.IsRetryable, func(ctx context.Context) error {
		m, err := s.platform.SearchTrack(ctx, title, artist)
		match = m
		return err
	})
	return match, err
}
