package testing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
)

// FakePlatform is an in-memory [services.Platform] with a catalog, a library, and scripted failures.
//
// Error queues are consumed one entry per call: a queued nil lets that call succeed.
type FakePlatform struct {
	mu sync.Mutex

	name    string
	catalog map[string]models.Track // normalized key -> song
	songs   map[string]models.Track // catalog id -> song
	library map[string]*services.RemotePlaylist
	nextID  int

	AuthErrs    []error
	SearchErrs  map[string][]error // normalized key -> queued errors
	CreateErrs  []error
	ReplaceErrs []error
	FetchErrs   []error
	UpdateErrs  []error
	Rejected    map[string]bool // catalog ids that replace reports as rejected
	SearchDelay time.Duration

	calls       map[string]int
	inFlight    int
	maxInFlight int
}

// NewFakePlatform creates an empty fake registered under name.
func NewFakePlatform(name string) *FakePlatform {
	return &FakePlatform{
		name:       name,
		catalog:    make(map[string]models.Track),
		songs:      make(map[string]models.Track),
		library:    make(map[string]*services.RemotePlaylist),
		SearchErrs: make(map[string][]error),
		Rejected:   make(map[string]bool),
		calls:      make(map[string]int),
	}
}

// PlatformErr builds a [services.PlatformError] of the given kind.
func PlatformErr(kind services.ErrorKind) error {
	return &services.PlatformError{Kind: kind, Platform: "fake", Op: "test", Err: errors.New(kind.String())}
}

// RateLimitedErr builds a rate limit error carrying a Retry-After wait.
func RateLimitedErr(wait time.Duration) error {
	return &services.PlatformError{Kind: services.KindRateLimited, Platform: "fake", Op: "test", RetryAfter: wait, Err: errors.New("slow down")}
}

// AddSong puts a song in the catalog.
func (f *FakePlatform) AddSong(id, title, artist string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := models.Track{Title: title, Artist: artist, DurationMS: 200_000}
	t.SetPlatformID(f.name, id)
	f.catalog[shared.NormalizeTrackKey(title, artist)] = t
	f.songs[id] = t
}

// AddRemotePlaylist puts a playlist of catalog ids in the library.
func (f *FakePlatform) AddRemotePlaylist(id, name string, songIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &services.RemotePlaylist{ID: id, Name: name}
	for _, sid := range songIDs {
		p.Tracks = append(p.Tracks, f.songs[sid].Clone())
	}
	f.library[id] = p
}

// RemoteTrackIDs returns the catalog ids of a library playlist in order.
func (f *FakePlatform) RemoteTrackIDs(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.library[id]
	if !ok {
		return nil
	}
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i], _ = t.PlatformID(f.name)
	}
	return ids
}

// Remote returns a copy of a library playlist.
func (f *FakePlatform) Remote(id string) (services.RemotePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.library[id]
	if !ok {
		return services.RemotePlaylist{}, false
	}
	return copyRemote(p), true
}

// LibrarySize returns the number of library playlists.
func (f *FakePlatform) LibrarySize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.library)
}

// Calls returns how many times op was invoked.
func (f *FakePlatform) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// MaxInFlight returns the highest number of concurrent searches observed.
func (f *FakePlatform) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *FakePlatform) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func pop(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *FakePlatform) popLocked(queue *[]error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pop(queue)
}

func (f *FakePlatform) notFound(op, what string) error {
	return &services.PlatformError{
		Kind:     services.KindNotFound,
		Platform: f.name,
		Op:       op,
		Err:      fmt.Errorf("%w: %s", shared.ErrRemoteNotFound, what),
	}
}

func copyRemote(p *services.RemotePlaylist) services.RemotePlaylist {
	c := *p
	c.Tracks = make([]models.Track, len(p.Tracks))
	for i, t := range p.Tracks {
		c.Tracks[i] = t.Clone()
	}
	return c
}

func (f *FakePlatform) Name() string { return f.name }

func (f *FakePlatform) Authenticate(ctx context.Context) error {
	f.record("authenticate")
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.popLocked(&f.AuthErrs)
}

func (f *FakePlatform) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	key := shared.NormalizeTrackKey(title, artist)

	f.mu.Lock()
	f.calls["search"]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	queue := f.SearchErrs[key]
	err := pop(&queue)
	f.SearchErrs[key] = queue
	delay := f.SearchDelay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	song, ok := f.catalog[key]
	f.mu.Unlock()
	if !ok {
		return nil, f.notFound("search", key)
	}

	t := song.Clone()
	return &t, nil
}

// GetCatalogSong returns a catalog song by id.
func (f *FakePlatform) GetCatalogSong(ctx context.Context, id string) (*models.Track, error) {
	f.record("lookup")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	song, ok := f.songs[id]
	f.mu.Unlock()
	if !ok {
		return nil, f.notFound("lookup", id)
	}

	t := song.Clone()
	return &t, nil
}

func (f *FakePlatform) ListRemotePlaylists(ctx context.Context) ([]services.RemotePlaylist, error) {
	f.record("list")

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]services.RemotePlaylist, 0, len(f.library))
	for _, p := range f.library {
		out = append(out, services.RemotePlaylist{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakePlatform) CreateRemotePlaylist(ctx context.Context, name, description string) (string, error) {
	f.record("create")
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := pop(&f.CreateErrs); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("p.%d", f.nextID)
	f.library[id] = &services.RemotePlaylist{ID: id, Name: name, Description: description, Tracks: []models.Track{}}
	return id, nil
}

func (f *FakePlatform) UpdateRemotePlaylist(ctx context.Context, remoteID, name, description string) error {
	f.record("update")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := pop(&f.UpdateErrs); err != nil {
		return err
	}
	p, ok := f.library[remoteID]
	if !ok {
		return f.notFound("update", remoteID)
	}
	p.Name, p.Description = name, description
	return nil
}

func (f *FakePlatform) ReplaceRemotePlaylistTracks(ctx context.Context, remoteID string, trackIDs []string) (*services.ReplaceResult, error) {
	f.record("replace")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := pop(&f.ReplaceErrs); err != nil {
		return nil, err
	}
	p, ok := f.library[remoteID]
	if !ok {
		return nil, f.notFound("replace", remoteID)
	}

	result := &services.ReplaceResult{}
	tracks := []models.Track{}
	for _, id := range trackIDs {
		if f.Rejected[id] {
			if !slices.Contains(result.Rejected, id) {
				result.Rejected = append(result.Rejected, id)
			}
			continue
		}
		song, ok := f.songs[id]
		if !ok {
			song = models.Track{Title: id, Artist: "unknown"}
			song.SetPlatformID(f.name, id)
		}
		tracks = append(tracks, song.Clone())
		result.Accepted++
	}
	p.Tracks = tracks
	return result, nil
}

func (f *FakePlatform) FetchRemotePlaylist(ctx context.Context, remoteID string) (*services.RemotePlaylist, error) {
	f.record("fetch")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := pop(&f.FetchErrs); err != nil {
		return nil, err
	}
	p, ok := f.library[remoteID]
	if !ok {
		return nil, f.notFound("fetch", remoteID)
	}
	c := copyRemote(p)
	return &c, nil
}

func (f *FakePlatform) DeleteRemotePlaylist(ctx context.Context, remoteID string) error {
	f.record("delete")

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.library[remoteID]; !ok {
		return f.notFound("delete", remoteID)
	}
	delete(f.library, remoteID)
	return nil
}
