package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/tasks"
)

// catalogLookup is implemented by platforms that can fetch a catalog song by id.
type catalogLookup interface {
	GetCatalogSong(ctx context.Context, id string) (*models.Track, error)
}

// storefronter is implemented by platforms with a regional storefront.
type storefronter interface {
	Storefront() string
}

// PlatformAuth authenticates and reports the storefront in use.
func (r *Runner) PlatformAuth(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	if err := engine.Authenticate(ctx, r.platformName()); err != nil {
		return err
	}

	r.writePlain("✓ Authenticated with %s\n", r.platformName())
	if sf, ok := r.platform.(storefronter); ok {
		r.writePlain("Storefront: %s\n", sf.Storefront())
	}
	return nil
}

// PlatformSearch finds the best catalog match for TITLE ARTIST, or looks up --id.
func (r *Runner) PlatformSearch(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}
	name := r.platformName()

	var track *models.Track
	if id := cmd.String("id"); id != "" {
		lookup, ok := r.platform.(catalogLookup)
		if !ok {
			return fmt.Errorf("%w: %s catalog lookup by id", shared.ErrNotImplemented, name)
		}
		if err := engine.Authenticate(ctx, name); err != nil {
			return err
		}
		if track, err = lookup.GetCatalogSong(ctx, id); err != nil {
			return err
		}
	} else {
		a, err := args(cmd, "TITLE", "ARTIST")
		if err != nil {
			return err
		}
		if track, err = engine.Search(ctx, name, a[0], a[1]); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	id, _ := track.PlatformID(name)
	r.writePlain("%s\n", track.String())
	r.writePlain("ID: %s\n", id)
	if track.DurationMS > 0 {
		r.writePlain("Duration: %s\n", shared.FormatDuration(track.DurationMS))
	}
	if track.ISRC != "" {
		r.writePlain("ISRC: %s\n", track.ISRC)
	}
	return nil
}

// runSync runs fn with a spinner on a terminal, or prints progress lines otherwise. JSON output suppresses progress.
func (r *Runner) runSync(ctx context.Context, title string, quiet bool, fn func(context.Context, chan<- tasks.ProgressUpdate) error) error {
	if r.interactive && !quiet {
		return spinner.New().
			Title(title).
			Context(ctx).
			ActionWithErr(func(ctx context.Context) error { return fn(ctx, nil) }).
			Run()
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.ResolveTracks:
				if update.Step > 0 {
					r.writePlain("   %s\n", update.Message)
				}
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	err := fn(ctx, progress)
	close(progress)
	<-done
	return err
}

// SyncTo mirrors one playlist, or every playlist with --all.
func (r *Runner) SyncTo(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}
	name, asJSON := r.platformName(), cmd.Bool("json")

	if cmd.Bool("all") {
		var result *tasks.SyncAllResult
		err := r.runSync(ctx, "Syncing all playlists...", asJSON, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
			var err error
			result, err = engine.SyncAll(ctx, name, progress)
			return err
		})
		if err != nil {
			return err
		}
		return r.writeSyncAll(result, asJSON)
	}

	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}

	var report *tasks.SyncReport
	err = r.runSync(ctx, "Syncing playlist...", asJSON, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
		var err error
		report, err = engine.SyncTo(ctx, a[0], name, progress)
		return err
	})
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(report, true)
	}
	r.writeReport(report)
	return nil
}

func (r *Runner) writeSyncAll(result *tasks.SyncAllResult, asJSON bool) error {
	failed := make([]string, 0, len(result.Failed))
	for id := range result.Failed {
		failed = append(failed, id)
	}
	slices.Sort(failed)

	errs := make([]error, 0, len(failed))
	for _, id := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", id, result.Failed[id]))
	}

	if asJSON {
		out := struct {
			Reports []*tasks.SyncReport `json:"reports"`
			Failed  map[string]string   `json:"failed"`
		}{Reports: result.Reports, Failed: make(map[string]string, len(failed))}
		for id, err := range result.Failed {
			out.Failed[id] = err.Error()
		}
		if err := r.writeJSON(out, true); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	for _, report := range result.Reports {
		r.writeReport(report)
	}
	r.writePlainln("Synced %d playlists, %d failed", len(result.Reports), len(failed))
	for _, err := range errs {
		r.writePlain("  ✗ %v\n", err)
	}
	return errors.Join(errs...)
}

func (r *Runner) writeReport(report *tasks.SyncReport) {
	action := "Updated"
	if report.Created {
		action = "Created"
	}

	r.writePlainln("")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Playlist: %s → %s (%s)\n", report.LocalID, report.RemoteID, action)
	r.writePlain("Synced: %d tracks (%d linked, %d searched)\n", report.Synced, report.Reused, report.Searched)

	if len(report.Skipped) > 0 {
		r.writePlain("\nSkipped %d tracks:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			r.writePlain("  - %s - %s: %s\n", s.Artist, s.Title, s.Reason)
		}
	}
	if len(report.Rejected) > 0 {
		r.writePlain("\nPlatform rejected %d tracks; they will be searched again next sync\n", len(report.Rejected))
	}
}

// SyncFrom imports a remote playlist. Without REMOTE_ID a picker lists the library playlists.
func (r *Runner) SyncFrom(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}
	name, asJSON := r.platformName(), cmd.Bool("json")

	remoteID := cmd.Args().First()
	if remoteID == "" {
		if !r.interactive {
			return fmt.Errorf("%w: REMOTE_ID", shared.ErrMissingArgument)
		}
		if remoteID, err = r.pickRemote(ctx, engine); err != nil {
			return err
		}
	}

	var report *tasks.SyncReport
	err = r.runSync(ctx, "Importing playlist...", asJSON, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
		var err error
		report, err = engine.SyncFrom(ctx, name, remoteID, progress)
		return err
	})
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(report, true)
	}
	r.writePlain("✓ Imported %s as %s with %d tracks\n", report.RemoteID, report.LocalID, report.Synced)
	return nil
}

func (r *Runner) pickRemote(ctx context.Context, engine *tasks.SyncEngine) (string, error) {
	remotes, err := engine.ListRemote(ctx, r.platformName())
	if err != nil {
		return "", err
	}
	if len(remotes) == 0 {
		return "", fmt.Errorf("%w: no playlists in your %s library", shared.ErrRemoteNotFound, r.platformName())
	}

	options := make([]huh.Option[string], len(remotes))
	for i, pl := range remotes {
		options[i] = huh.NewOption(pl.Name, pl.ID)
	}

	var id string
	err = huh.NewSelect[string]().
		Height(10).
		Title("Choose a playlist to import").
		Options(options...).
		Value(&id).
		Run()
	return id, err
}

// RemotePlaylists lists the user's playlists on the platform, marking those linked to a local playlist.
func (r *Runner) RemotePlaylists(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}
	name := r.platformName()

	remotes, err := engine.ListRemote(ctx, name)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if remotes == nil {
			remotes = []services.RemotePlaylist{}
		}
		return r.writeJSON(remotes, true)
	}
	if len(remotes) == 0 {
		return r.writePlain("No playlists found\n")
	}

	entries, err := r.library.List()
	if err != nil {
		return err
	}
	linked := make(map[string]string, len(entries))
	for _, e := range entries {
		if id, ok := e.PlatformIDs[name]; ok {
			linked[id] = e.ID
		}
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCAL")
	for _, pl := range remotes {
		local := "-"
		if id, ok := linked[pl.ID]; ok {
			local = id
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", pl.ID, pl.Name, local)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Status partitions local playlists into synced and local-only.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	statuses, err := engine.Status()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	for _, st := range statuses {
		r.writePlainHeader(st.Platform)
		r.writePlain("Synced (%d):\n", len(st.Synced))
		for _, e := range st.Synced {
			r.writePlain("  ✓ %s → %s (updated %s)\n", e.Name, e.PlatformIDs[st.Platform], humanize.Time(e.UpdatedAt))
		}
		r.writePlain("Local only (%d):\n", len(st.LocalOnly))
		for _, e := range st.LocalOnly {
			r.writePlain("  ○ %s (%s)\n", e.Name, e.ID)
		}
	}
	return nil
}

// Unlink forgets a playlist's remote link without touching the remote playlist.
func (r *Runner) Unlink(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	linked, err := engine.Unlink(a[0], r.platformName())
	if err != nil {
		return err
	}
	if !linked {
		return r.writePlain("%s is not synced to %s\n", a[0], r.platformName())
	}
	return r.writePlain("✓ Unlinked %s from %s\n", a[0], r.platformName())
}

// DeleteRemote deletes the remote copy of a playlist after confirmation.
func (r *Runner) DeleteRemote(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "ID")
	if err != nil {
		return err
	}
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	p, err := r.library.Get(a[0])
	if err != nil {
		return err
	}
	if _, ok := p.PlatformID(r.platformName()); !ok {
		return fmt.Errorf("%w: playlist %s is not synced to %s", shared.ErrInvalidArgument, p.ID, r.platformName())
	}
	if ok, err := r.confirmed(cmd, fmt.Sprintf("Delete the %s copy of %q?", r.platformName(), p.Name)); err != nil || !ok {
		return err
	}

	remoteID, err := engine.DeleteRemote(ctx, p.ID, r.platformName())
	if err != nil {
		return err
	}
	return r.writePlain("✓ Deleted remote playlist %s\n", remoteID)
}
