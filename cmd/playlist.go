package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// args returns the first len(names) positional arguments, failing on the first one missing.
func args(cmd *cli.Command, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v := strings.TrimSpace(cmd.Args().Get(i))
		if v == "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
		}
		out[i] = v
	}
	return out, nil
}

// position converts a 1-based CLI position to a 0-based index.
func position(s, name string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, s)
	}
	return n - 1, nil
}

// Create creates an empty playlist.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "NAME")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Create(a[0], cmd.String("description"), shared.SplitList(cmd.String("tags")))
	if err != nil {
		return err
	}
	r.logger.Info("created playlist", "id", p.ID, "name", p.Name)

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", p.Name, p.ID)
}

// List prints the playlist index, optionally filtered by query and tags.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.lib()
	if err != nil {
		return err
	}

	query, tags := cmd.String("query"), shared.SplitList(cmd.String("tags"))
	var entries []models.IndexEntry
	if query != "" || len(tags) > 0 {
		entries, err = lib.Search(query, tags)
	} else {
		entries, err = lib.List()
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if entries == nil {
			entries = []models.IndexEntry{}
		}
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("No playlists found\n")
	}

	platform := r.platformName()
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRACKS\tSYNCED\tUPDATED")
	for _, e := range entries {
		synced := "-"
		if e.Synced(platform) {
			synced = "✓"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.Name, e.TrackCount, synced, humanize.Time(e.UpdatedAt))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Show prints a playlist with its tracks.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Get(a[0])
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if cmd.Bool("no-tracks") {
			return r.writeJSON(p.Entry(), true)
		}
		return r.writeJSON(p, true)
	}

	r.writePlainHeader(p.Name)
	r.writePlain("ID: %s\n", p.ID)
	if p.Description != "" {
		r.writePlain("Description: %s\n", p.Description)
	}
	if len(p.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	r.writePlain("Tracks: %d (%s)\n", len(p.Tracks), p.DurationString())
	r.writePlain("Created: %s\n", humanize.Time(p.CreatedAt))
	r.writePlain("Updated: %s\n", humanize.Time(p.UpdatedAt))
	for platform, id := range p.PlatformIDs {
		r.writePlain("Synced to %s: %s\n", platform, id)
	}

	if cmd.Bool("no-tracks") || len(p.Tracks) == 0 {
		return nil
	}

	r.writePlain("\n")
	for i, t := range p.Tracks {
		r.writePlain("%3d. %s [%s] (%s)\n", i+1, t.String(), shared.FormatDuration(t.DurationMS), t.ID)
	}
	return nil
}

// Delete removes a playlist after confirmation.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Get(a[0])
	if err != nil {
		return err
	}

	if ok, err := r.confirmed(cmd, fmt.Sprintf("Delete %q (%d tracks)?", p.Name, len(p.Tracks))); err != nil || !ok {
		return err
	}

	if err := lib.Delete(p.ID); err != nil {
		return err
	}
	r.logger.Info("deleted playlist", "id", p.ID)
	return r.writePlain("✓ Deleted playlist %q\n", p.Name)
}

// confirmed asks before a destructive action unless --force is set.
//
// Without a terminal the action is refused; a declined prompt reports cancellation and returns false.
func (r *Runner) confirmed(cmd *cli.Command, title string) (bool, error) {
	if cmd.Bool("force") {
		return true, nil
	}
	if !r.interactive {
		return false, fmt.Errorf("%w: pass --force to confirm without a terminal", shared.ErrConfirmationDenied)
	}

	ok, err := r.confirm(title)
	if err != nil {
		return false, err
	}
	if !ok {
		r.writePlain("Cancelled\n")
	}
	return ok, nil
}

// Rename renames a playlist.
func (r *Runner) Rename(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "NAME")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Rename(a[0], a[1])
	if err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s to %q\n", p.ID, p.Name)
}

// Describe sets a playlist description. An empty TEXT clears it.
func (r *Runner) Describe(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.SetDescription(a[0], cmd.Args().Get(1))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated description of %q\n", p.Name)
}

// Tag adds or removes comma-separated tags.
func (r *Runner) Tag(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID", "TAGS")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	tags := shared.SplitList(a[1])
	add, remove := tags, []string(nil)
	if cmd.Bool("remove") {
		add, remove = nil, tags
	}

	p, err := lib.Tag(a[0], add, remove)
	if err != nil {
		return err
	}
	if len(p.Tags) == 0 {
		return r.writePlain("✓ %q has no tags\n", p.Name)
	}
	return r.writePlain("✓ %q tags: %s\n", p.Name, strings.Join(p.Tags, ", "))
}

// Duplicate copies a playlist.
func (r *Runner) Duplicate(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Duplicate(a[0], cmd.String("name"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created %q (%s) with %d tracks\n", p.Name, p.ID, len(p.Tracks))
}

// Merge combines playlists into a new one.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.lib()
	if err != nil {
		return err
	}

	p, err := lib.Merge(cmd.Args().Slice(), cmd.String("name"), cmd.Bool("keep-duplicates"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Merged %d playlists into %q (%s) with %d tracks\n",
		cmd.Args().Len(), p.Name, p.ID, len(p.Tracks))
}

// Stats prints library totals.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.lib()
	if err != nil {
		return err
	}

	stats, err := lib.Stats()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Library")
	r.writePlain("Playlists: %s\n", humanize.Comma(int64(stats.Playlists)))
	r.writePlain("Tracks: %s\n", humanize.Comma(int64(stats.Tracks)))
	for platform, n := range stats.Synced {
		r.writePlain("Synced to %s: %d\n", platform, n)
	}
	r.writePlain("Storage: %s (%s)\n", stats.Location, humanize.Bytes(uint64(stats.StorageBytes)))
	return nil
}
