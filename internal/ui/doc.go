// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the local library and mirrors one playlist at a time to a streaming platform:
//  1. [PlaylistListView] : Browse local playlists with their sync state
//  2. [TrackListView] : Preview tracks, marking those already matched on the platform
//  3. [ConfirmView] : Confirm creating or updating the remote playlist
//  4. [SyncView] : Follow progress updates from the sync engine
//  5. [ResultView] : Show the sync report and any skipped tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg
// union type. Progress updates flow through a channel from [tasks.SyncEngine]; the report arrives once the engine
// stops sending.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, s, esc, y/n, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
