// Package tasks implements the playlist library and the sync engine that mirrors it to streaming platforms.
//
// # Library
//
// [Library] wraps a playlist store with the editing operations the CLI and TUI use: create, rename, tag, track
// edits, duplicate, merge, import/export and stats. Mutations of one playlist are serialized by a per-id lock.
//
// # Sync Engine
//
// [SyncEngine] drives any [services.Platform]:
//
//  1. [SyncEngine.SyncTo] : outbound sync
//     - Loads the playlist under its id lock and authenticates
//     - Reuses existing track links; searches the catalog for the rest (bounded pool, rate limited, retried)
//     - Creates the remote playlist on first sync, otherwise reuses the link
//     - Replaces the remote track list with the matches in local order
//     - Saves the playlist last, so failures and cancellation leave it unchanged
//
//  2. [SyncEngine.SyncFrom] : inbound sync
//     - Fetches a remote playlist and saves it as a new linked local playlist
//
//  3. [SyncEngine.Status] : synced vs local-only per platform, from the store index alone
//
// # Failure Handling
//
// Authentication is cached per platform and dropped when any call reports an auth error; it is never retried
// within an operation. Rate limiting, transient network errors and per-call timeouts are retried with exponential
// backoff. A track whose lookup still fails is skipped and reported. Playlist-level failures abort the sync.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block; updates are dropped when the
// channel is full.
package tasks
