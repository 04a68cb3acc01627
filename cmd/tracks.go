package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/formatter"
	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// AddTrack adds a track to a playlist.
func (r *Runner) AddTrack(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "TITLE", "ARTIST")
	if err != nil {
		return err
	}

	pos := -1
	if cmd.IsSet("position") {
		n := int(cmd.Int("position"))
		if n < 1 {
			return fmt.Errorf("%w: position must be a positive number, got %d", shared.ErrInvalidArgument, n)
		}
		pos = n - 1
	}
	if cmd.Int("duration") < 0 {
		return fmt.Errorf("%w: duration must not be negative", shared.ErrInvalidArgument)
	}

	lib, err := r.lib()
	if err != nil {
		return err
	}

	t := models.NewTrack(a[1], a[2])
	t.Album = cmd.String("album")
	t.DurationMS = int(cmd.Int("duration"))
	t.ISRC = cmd.String("isrc")
	t.AdditionalArtists = shared.SplitList(cmd.String("additional-artists"))

	added, err := lib.AddTrack(a[0], t, pos)
	if err != nil {
		return err
	}
	r.logger.Debug("added track", "playlist", a[0], "track", added.ID)

	if cmd.Bool("json") {
		return r.writeJSON(added, true)
	}
	return r.writePlain("✓ Added %s (%s)\n", added.String(), added.ID)
}

// RemoveTrack removes a track by id.
func (r *Runner) RemoveTrack(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "TRACK_ID")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	removed, err := lib.RemoveTrack(a[0], a[1])
	if err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", removed.String())
}

// MoveTrack moves a track between 1-based positions.
func (r *Runner) MoveTrack(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "FROM", "TO")
	if err != nil {
		return err
	}
	from, err := position(a[1], "FROM")
	if err != nil {
		return err
	}
	to, err := position(a[2], "TO")
	if err != nil {
		return err
	}

	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.MoveTrack(a[0], from, to)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Moved %q to position %d\n", p.Tracks[to].Title, to+1)
}

// Export writes a playlist to OUTPUT, or to stdout when OUTPUT is "-".
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "OUTPUT")
	if err != nil {
		return err
	}

	var f formatter.Format
	if s := cmd.String("format"); s != "" {
		if f, err = formatter.ParseFormat(s); err != nil {
			return err
		}
	}

	lib, err := r.lib()
	if err != nil {
		return err
	}

	if a[1] == "-" {
		if f == "" {
			f = formatter.JSON
		}
		return lib.Export(a[0], r.output, f)
	}

	path := shared.ExpandPath(a[1])
	if err := lib.ExportFile(a[0], path, f); err != nil {
		return err
	}
	r.logger.Info("exported playlist", "id", a[0], "path", path)
	return r.writePlain("✓ Exported to %s\n", path)
}

// Import reads a playlist file into the library.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "INPUT")
	if err != nil {
		return err
	}

	var f formatter.Format
	if s := cmd.String("format"); s != "" {
		if f, err = formatter.ParseFormat(s); err != nil {
			return err
		}
	}

	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.ImportFile(shared.ExpandPath(a[0]), f, cmd.String("name"), cmd.Bool("new-id"))
	if err != nil {
		return err
	}
	r.logger.Info("imported playlist", "id", p.ID, "tracks", len(p.Tracks))
	return r.writePlain("✓ Imported %q (%s) with %d tracks\n", p.Name, p.ID, len(p.Tracks))
}
