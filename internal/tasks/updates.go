package tasks

import (
	"fmt"

	"github.com/desertthunder/plylist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadPlaylist Phase = iota
	Authenticate
	ResolveTracks
	CreateRemote
	ReplaceTracks
	FetchRemote
	SavePlaylist
)

func (p Phase) String() string {
	switch p {
	case LoadPlaylist:
		return "load_playlist"
	case Authenticate:
		return "authenticate"
	case ResolveTracks:
		return "resolve_tracks"
	case CreateRemote:
		return "create_remote"
	case ReplaceTracks:
		return "replace_tracks"
	case FetchRemote:
		return "fetch_remote"
	case SavePlaylist:
		return "save_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadPlaylistUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Loading playlist %s...", id),
	}
}

func authenticateUpdate(platform string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Authenticating with %s...", platform),
	}
}

func resolveTrackUpdate(step, total int, tr *models.Track, matched bool) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: "Resolving catalog matches...",
		}
	}

	mark := "✓"
	if !matched {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, tr.Artist, tr.Title),
		Data:    tr,
	}
}

func createRemoteUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating remote playlist %q...", name),
	}
}

func updateRemoteUpdate(remoteID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Updating remote playlist %s...", remoteID),
	}
}

func replaceTracksUpdate(remoteID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplaceTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %d tracks to %s...", count, remoteID),
	}
}

func fetchRemoteUpdate(remoteID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching remote playlist %s...", remoteID),
	}
}

func savePlaylistUpdate(p *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SavePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %s (%d tracks)", p.Name, len(p.Tracks)),
		Data:    p,
	}
}
