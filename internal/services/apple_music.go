// Apple Music API [Platform] implementation
//
// Talks to the MusicKit REST API. Every request carries the developer token as a bearer token;
// library (/me) requests also carry the Music-User-Token header.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

const (
	defaultAppleMusicBaseURL = "https://api.music.apple.com/v1"
	defaultStorefront        = "us"
	searchLimit              = 5
	pageLimit                = 100
)

// AppleMusicOpts overrides the adapter's transport for tests and embedding.
type AppleMusicOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// AppleMusicService implements [Platform] and [MetadataUpdater] for Apple Music.
type AppleMusicService struct {
	cfg     shared.AppleMusicConfig
	baseURL string
	base    http.RoundTripper
	logger  *log.Logger

	mu         sync.RWMutex
	tokens     oauth2.TokenSource
	client     *http.Client
	storefront string
}

// NewAppleMusicService creates an unauthenticated adapter.
func NewAppleMusicService(cfg shared.AppleMusicConfig, opts AppleMusicOpts) *AppleMusicService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAppleMusicBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}

	return &AppleMusicService{
		cfg:     cfg,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		base:    base,
		logger:  shared.WithLogger(opts.Logger, "platform", models.AppleMusic),
	}
}

// Name returns the platform key.
func (a *AppleMusicService) Name() string {
	return models.AppleMusic
}

// Storefront returns the storefront resolved during authentication, or the configured one.
func (a *AppleMusicService) Storefront() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.storefront != "" {
		return a.storefront
	}
	if a.cfg.Storefront != "" {
		return a.cfg.Storefront
	}
	return defaultStorefront
}

// tokenSource lazily builds the cached developer token source.
func (a *AppleMusicService) tokenSource() (oauth2.TokenSource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tokens != nil {
		return a.tokens, nil
	}
	if !a.cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: team_id, key_id and private_key_path are required", shared.ErrMissingCredentials)
	}

	src, err := NewDeveloperTokenSource(a.cfg.TeamID, a.cfg.KeyID, a.cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	a.tokens = oauth2.ReuseTokenSource(nil, src)
	return a.tokens, nil
}

// DeveloperToken returns a signed developer token. It needs no user token.
func (a *AppleMusicService) DeveloperToken() (string, error) {
	src, err := a.tokenSource()
	if err != nil {
		return "", newPlatformError(KindAuth, a.Name(), "developer token", err)
	}
	tok, err := src.Token()
	if err != nil {
		return "", newPlatformError(KindAuth, a.Name(), "developer token", err)
	}
	return tok.AccessToken, nil
}

// Authenticate signs a developer token, checks for a user token, and resolves the user's storefront.
//
// A storefront lookup failure other than an auth error falls back to the configured storefront.
func (a *AppleMusicService) Authenticate(ctx context.Context) error {
	const op = "authenticate"

	src, err := a.tokenSource()
	if err != nil {
		return newPlatformError(KindAuth, a.Name(), op, err)
	}
	if _, err := src.Token(); err != nil {
		return newPlatformError(KindAuth, a.Name(), op, err)
	}
	if a.cfg.UserToken == "" {
		return newPlatformError(KindAuth, a.Name(), op,
			fmt.Errorf("%w: no user token, run `plylist apple-music token`", shared.ErrNotAuthenticated))
	}

	a.mu.Lock()
	a.client = &http.Client{Transport: &oauth2.Transport{Source: src, Base: a.base}}
	a.mu.Unlock()

	sf, err := a.fetchStorefront(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || KindOf(err) == KindAuth:
		a.mu.Lock()
		a.client = nil
		a.mu.Unlock()
		return err
	default:
		sf = a.Storefront()
		a.logger.Warn("storefront lookup failed, using configured storefront", "storefront", sf, "error", err)
	}

	a.mu.Lock()
	a.storefront = sf
	a.mu.Unlock()

	a.logger.Debug("authenticated", "storefront", sf)
	return nil
}

func (a *AppleMusicService) fetchStorefront(ctx context.Context) (string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.doRequest(ctx, "storefront", http.MethodGet, "/me/storefront", nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return "", newPlatformError(KindProtocol, a.Name(), "storefront", errors.New("empty storefront response"))
	}
	return resp.Data[0].ID, nil
}

func (a *AppleMusicService) httpClient() *http.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

// doRequest sends a JSON request and decodes a JSON response into result.
//
// target is either a path relative to the base URL or a "next" link from a paginated response.
func (a *AppleMusicService) doRequest(ctx context.Context, op, method, target string, body, result any) error {
	client := a.httpClient()
	if client == nil {
		return newPlatformError(KindAuth, a.Name(), op, shared.ErrNotAuthenticated)
	}

	endpoint, err := a.resolve(target)
	if err != nil {
		return newPlatformError(KindProtocol, a.Name(), op, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.Contains(req.URL.Path, "/me/") {
		req.Header.Set("Music-User-Token", a.cfg.UserToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return newPlatformError(KindAuth, a.Name(), op, err)
		}
		return newPlatformError(KindTransient, a.Name(), op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.statusError(op, resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return newPlatformError(KindProtocol, a.Name(), op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (a *AppleMusicService) resolve(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target, nil
	}

	base, err := url.Parse(a.baseURL)
	if err != nil {
		return "", err
	}

	// "next" links are rooted at the host and already carry the API version.
	version := base.Path
	if version != "" && strings.HasPrefix(target, version+"/") {
		ref, err := url.Parse(target)
		if err != nil {
			return "", err
		}
		return base.ResolveReference(ref).String(), nil
	}
	return a.baseURL + target, nil
}

// statusError maps a non-2xx response to a [PlatformError].
func (a *AppleMusicService) statusError(op string, resp *http.Response) error {
	var apiErr struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	detail := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); err == nil && len(apiErr.Errors) > 0 {
		detail = apiErr.Errors[0].Title
		if apiErr.Errors[0].Detail != "" {
			detail += ": " + apiErr.Errors[0].Detail
		}
	}

	pe := newPlatformError(classifyStatus(resp.StatusCode), a.Name(), op, errors.New(detail))
	pe.Status = resp.StatusCode
	if pe.Kind == KindRateLimited {
		pe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return pe
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status >= 500:
		return KindTransient
	default:
		return KindProtocol
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

type appleSong struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name             string   `json:"name"`
		ArtistName       string   `json:"artistName"`
		AlbumName        string   `json:"albumName"`
		DurationInMillis int      `json:"durationInMillis"`
		ISRC             string   `json:"isrc"`
		URL              string   `json:"url"`
		GenreNames       []string `json:"genreNames"`
		Previews         []struct {
			URL string `json:"url"`
		} `json:"previews"`
		Artwork struct {
			URL string `json:"url"`
		} `json:"artwork"`
		PlayParams struct {
			ID        string `json:"id"`
			CatalogID string `json:"catalogId"`
		} `json:"playParams"`
	} `json:"attributes"`
}

// catalogID prefers the catalog id, which library tracks expose through playParams.
func (s appleSong) catalogID() string {
	if s.Attributes.PlayParams.CatalogID != "" {
		return s.Attributes.PlayParams.CatalogID
	}
	return s.ID
}

func (s appleSong) toTrack() models.Track {
	attrs := s.Attributes
	t := models.Track{
		Title:      attrs.Name,
		Artist:     attrs.ArtistName,
		Album:      attrs.AlbumName,
		DurationMS: attrs.DurationInMillis,
		ISRC:       attrs.ISRC,
	}
	t.SetPlatformID(models.AppleMusic, s.catalogID())

	meta := map[string]string{}
	if attrs.URL != "" {
		meta["url"] = attrs.URL
	}
	if len(attrs.Previews) > 0 && attrs.Previews[0].URL != "" {
		meta["preview_url"] = attrs.Previews[0].URL
	}
	if attrs.Artwork.URL != "" {
		meta["artwork_url"] = attrs.Artwork.URL
	}
	if len(attrs.GenreNames) > 0 {
		meta["genres"] = strings.Join(attrs.GenreNames, ", ")
	}
	if len(meta) > 0 {
		t.Metadata = meta
	}
	return t
}

type applePlaylist struct {
	ID         string `json:"id"`
	Attributes struct {
		Name        string `json:"name"`
		Description struct {
			Standard string `json:"standard"`
		} `json:"description"`
	} `json:"attributes"`
}

func (p applePlaylist) toRemote() RemotePlaylist {
	return RemotePlaylist{ID: p.ID, Name: p.Attributes.Name, Description: p.Attributes.Description.Standard}
}

// SearchTrack searches the catalog for title and artist.
//
// Calls GET /catalog/{storefront}/search. The first song whose name contains title and whose artist contains artist
// (case-insensitive) wins.
func (a *AppleMusicService) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	const op = "search"

	q := url.Values{}
	q.Set("term", strings.TrimSpace(title+" "+artist))
	q.Set("types", "songs")
	q.Set("limit", strconv.Itoa(searchLimit))
	endpoint := fmt.Sprintf("/catalog/%s/search?%s", url.PathEscape(a.Storefront()), q.Encode())

	var resp struct {
		Results struct {
			Songs struct {
				Data []appleSong `json:"data"`
			} `json:"songs"`
		} `json:"results"`
	}
	if err := a.doRequest(ctx, op, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	wantTitle, wantArtist := strings.ToLower(title), strings.ToLower(artist)
	for _, song := range resp.Results.Songs.Data {
		name, by := strings.ToLower(song.Attributes.Name), strings.ToLower(song.Attributes.ArtistName)
		if strings.Contains(name, wantTitle) && strings.Contains(by, wantArtist) {
			track := song.toTrack()
			return &track, nil
		}
	}

	return nil, newPlatformError(KindNotFound, a.Name(), op,
		fmt.Errorf("%w: no match for %q by %q", shared.ErrRemoteNotFound, title, artist))
}

// GetCatalogSong fetches a single catalog song by id.
//
// Calls GET /catalog/{storefront}/songs/{id}.
func (a *AppleMusicService) GetCatalogSong(ctx context.Context, id string) (*models.Track, error) {
	const op = "get song"

	var resp struct {
		Data []appleSong `json:"data"`
	}
	endpoint := fmt.Sprintf("/catalog/%s/songs/%s", url.PathEscape(a.Storefront()), url.PathEscape(id))
	if err := a.doRequest(ctx, op, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, newPlatformError(KindNotFound, a.Name(), op, fmt.Errorf("%w: song %s", shared.ErrRemoteNotFound, id))
	}

	track := resp.Data[0].toTrack()
	return &track, nil
}

// ListRemotePlaylists retrieves every library playlist, following pagination.
//
// Calls GET /me/library/playlists.
func (a *AppleMusicService) ListRemotePlaylists(ctx context.Context) ([]RemotePlaylist, error) {
	playlists := []RemotePlaylist{}
	next := fmt.Sprintf("/me/library/playlists?limit=%d", pageLimit)

	for next != "" {
		var resp struct {
			Data []applePlaylist `json:"data"`
			Next string          `json:"next"`
		}
		if err := a.doRequest(ctx, "list playlists", http.MethodGet, next, nil, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Data {
			playlists = append(playlists, p.toRemote())
		}
		next = resp.Next
	}
	return playlists, nil
}

// CreateRemotePlaylist creates an empty library playlist.
//
// Calls POST /me/library/playlists.
func (a *AppleMusicService) CreateRemotePlaylist(ctx context.Context, name, description string) (string, error) {
	const op = "create playlist"

	payload := map[string]any{
		"attributes": map[string]string{
			"name":        name,
			"description": description,
		},
	}

	var resp struct {
		Data []applePlaylist `json:"data"`
	}
	if err := a.doRequest(ctx, op, http.MethodPost, "/me/library/playlists", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return "", newPlatformError(KindProtocol, a.Name(), op, errors.New("response did not include a playlist id"))
	}
	return resp.Data[0].ID, nil
}

// UpdateRemotePlaylist sets the remote name and description.
//
// Calls PATCH /me/library/playlists/{id}.
func (a *AppleMusicService) UpdateRemotePlaylist(ctx context.Context, remoteID, name, description string) error {
	payload := map[string]any{
		"attributes": map[string]string{
			"name":        name,
			"description": description,
		},
	}
	endpoint := "/me/library/playlists/" + url.PathEscape(remoteID)
	return a.doRequest(ctx, "update playlist", http.MethodPatch, endpoint, payload, nil)
}

type songRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ReplaceRemotePlaylistTracks sets the playlist's tracks to trackIDs in order.
//
// Calls PUT /me/library/playlists/{id}/tracks. Ids echoed back in an errors array are reported as rejected.
func (a *AppleMusicService) ReplaceRemotePlaylistTracks(ctx context.Context, remoteID string, trackIDs []string) (*ReplaceResult, error) {
	refs := make([]songRef, len(trackIDs))
	for i, id := range trackIDs {
		refs[i] = songRef{ID: id, Type: "songs"}
	}

	var resp struct {
		Errors []struct {
			Source struct {
				ID string `json:"id"`
			} `json:"source"`
		} `json:"errors"`
	}
	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks", url.PathEscape(remoteID))
	if err := a.doRequest(ctx, "replace tracks", http.MethodPut, endpoint, map[string]any{"data": refs}, &resp); err != nil {
		return nil, err
	}

	result := &ReplaceResult{}
	rejected := make(map[string]bool)
	for _, e := range resp.Errors {
		if e.Source.ID != "" && !rejected[e.Source.ID] {
			rejected[e.Source.ID] = true
			result.Rejected = append(result.Rejected, e.Source.ID)
		}
	}
	for _, id := range trackIDs {
		if !rejected[id] {
			result.Accepted++
		}
	}
	return result, nil
}

// FetchRemotePlaylist retrieves a library playlist with its tracks in remote order.
//
// Calls GET /me/library/playlists/{id} and then pages through /tracks. An empty playlist answers the tracks request
// with 404, which is treated as no tracks.
func (a *AppleMusicService) FetchRemotePlaylist(ctx context.Context, remoteID string) (*RemotePlaylist, error) {
	const op = "fetch playlist"
	endpoint := "/me/library/playlists/" + url.PathEscape(remoteID)

	var resp struct {
		Data []applePlaylist `json:"data"`
	}
	if err := a.doRequest(ctx, op, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, newPlatformError(KindNotFound, a.Name(), op, fmt.Errorf("%w: playlist %s", shared.ErrRemoteNotFound, remoteID))
	}

	remote := resp.Data[0].toRemote()
	remote.Tracks = []models.Track{}

	next := fmt.Sprintf("%s/tracks?limit=%d", endpoint, pageLimit)
	for next != "" {
		var page struct {
			Data []appleSong `json:"data"`
			Next string      `json:"next"`
		}
		if err := a.doRequest(ctx, op, http.MethodGet, next, nil, &page); err != nil {
			if KindOf(err) == KindNotFound && len(remote.Tracks) == 0 {
				break
			}
			return nil, err
		}
		for _, song := range page.Data {
			remote.Tracks = append(remote.Tracks, song.toTrack())
		}
		next = page.Next
	}
	return &remote, nil
}

// DeleteRemotePlaylist removes a library playlist.
//
// Calls DELETE /me/library/playlists/{id}.
func (a *AppleMusicService) DeleteRemotePlaylist(ctx context.Context, remoteID string) error {
	endpoint := "/me/library/playlists/" + url.PathEscape(remoteID)
	return a.doRequest(ctx, "delete playlist", http.MethodDelete, endpoint, nil, nil)
}
