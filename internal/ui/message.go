package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsLoaded MsgKind = iota
	MsgPlaylistLoaded
	MsgProgressUpdate
	MsgSyncComplete
)

type playlistsLoaded struct {
	entries []models.IndexEntry
	err     error
}

type playlistLoaded struct {
	playlist *models.Playlist
	err      error
}

type syncComplete struct {
	report *tasks.SyncReport
	err    error
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(entries []models.IndexEntry, err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlistsLoaded{entries, err}}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(p *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: playlistLoaded{p, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(report *tasks.SyncReport, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{report, err}}
}
