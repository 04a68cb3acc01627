// Package repositories implements the local playlist store.
//
// Key Implementations:
//   - [FileStore] : one pretty-printed JSON file per playlist plus an index.json summary, written atomically via
//     temp file and rename
//   - [SQLiteStore] : a playlists table holding summary columns and the full record as JSON, plus sync history
//
// Both satisfy [PlaylistStore]. Unknown ids surface as [shared.ErrPlaylistNotFound]. [Open] picks the driver from
// the [storage] config section.
package repositories
