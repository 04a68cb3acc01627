package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/plylist/internal/models"
)

var (
	_ list.Item = entryItem{}
	_ list.Item = trackItem{}
)

// entryItem wraps [models.IndexEntry] with its sync state on one platform.
type entryItem struct {
	entry    models.IndexEntry
	platform string
}

func (i entryItem) FilterValue() string { return i.entry.Name }
func (i entryItem) Title() string {
	if i.entry.Synced(i.platform) {
		return styles.ok.Render("● ") + i.entry.Name
	}
	return styles.help.Render("○ ") + i.entry.Name
}
func (i entryItem) Description() string {
	state := "local only"
	if id := i.entry.PlatformIDs[i.platform]; id != "" {
		state = "synced → " + id
	}
	return fmt.Sprintf("%d tracks • %s • updated %s", i.entry.TrackCount, state, humanize.Time(i.entry.UpdatedAt))
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track    models.Track
	platform string
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	if _, ok := i.track.PlatformID(i.platform); ok {
		desc += " • matched"
	}
	return desc
}
