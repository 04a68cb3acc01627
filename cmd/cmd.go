// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create an empty playlist",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			jsonFlag(),
		},
		Action: r.Create,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Match name, description or tags"},
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Only playlists with any of these comma-separated tags"},
			jsonFlag(),
		},
		Action: r.List,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a playlist and its tracks",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-tracks", Usage: "Omit the track listing"},
			jsonFlag(),
		},
		Action: r.Show,
	}
}

func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a playlist",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
		},
		Action: r.Delete,
	}
}

func renameCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename a playlist",
		ArgsUsage: "ID NAME",
		Action:    r.Rename,
	}
}

func describeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Set a playlist description",
		ArgsUsage: "ID TEXT",
		Action:    r.Describe,
	}
}

func tagCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Add or remove playlist tags",
		ArgsUsage: "ID TAGS",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remove", Aliases: []string{"r"}, Usage: "Remove the tags instead of adding them"},
		},
		Action: r.Tag,
	}
}

func addTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add-track",
		Usage:     "Add a track to a playlist",
		ArgsUsage: "ID TITLE ARTIST",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "album", Aliases: []string{"a"}, Usage: "Album name"},
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Duration in milliseconds"},
			&cli.StringFlag{Name: "isrc", Aliases: []string{"i"}, Usage: "International Standard Recording Code"},
			&cli.StringFlag{Name: "additional-artists", Usage: "Comma-separated featured artists"},
			&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Usage: "1-based position (appends when omitted)"},
			jsonFlag(),
		},
		Action: r.AddTrack,
	}
}

func removeTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "remove-track",
		Usage:     "Remove a track from a playlist",
		ArgsUsage: "ID TRACK_ID",
		Action:    r.RemoveTrack,
	}
}

func moveTrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "move-track",
		Usage:     "Move a track to another position",
		ArgsUsage: "ID FROM TO",
		Action:    r.MoveTrack,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a playlist to a file (\"-\" for stdout)",
		ArgsUsage: "ID OUTPUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, md or txt (default: from extension)"},
		},
		Action: r.Export,
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a playlist from a JSON or CSV file",
		ArgsUsage: "INPUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or csv (default: from extension)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Playlist name"},
			&cli.BoolFlag{Name: "new-id", Usage: "Assign a new id to a JSON import"},
		},
		Action: r.Import,
	}
}

func duplicateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Aliases:   []string{"dup"},
		Usage:     "Copy a playlist without its sync links",
		ArgsUsage: "ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name of the copy"},
		},
		Action: r.Duplicate,
	}
}

func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge playlists into a new one",
		ArgsUsage: "ID...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Name of the merged playlist", Required: true},
			&cli.BoolFlag{Name: "keep-duplicates", Usage: "Keep tracks that appear in more than one playlist"},
		},
		Action: r.Merge,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show library statistics",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Stats,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Write the config file and initialize storage",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing config file"},
		},
		Action: r.Setup,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse playlists and sync them interactively",
		Action: r.TUI,
	}
}

// appleMusicCommand groups the platform operations.
func appleMusicCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "apple-music",
		Aliases: []string{"am", "platform"},
		Usage:   "Apple Music operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Check credentials and resolve the storefront",
				Action: r.PlatformAuth,
			},
			{
				Name:      "search",
				Usage:     "Search the catalog for a track",
				ArgsUsage: "TITLE ARTIST",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Look up a catalog song id instead of searching"},
					jsonFlag(),
				},
				Action: r.PlatformSearch,
			},
			{
				Name:      "sync-to",
				Aliases:   []string{"push"},
				Usage:     "Mirror a local playlist to the platform",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Sync every local playlist"},
					jsonFlag(),
				},
				Action: r.SyncTo,
			},
			{
				Name:      "sync-from",
				Aliases:   []string{"pull"},
				Usage:     "Import a remote playlist as a new local playlist",
				ArgsUsage: "[REMOTE_ID]",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.SyncFrom,
			},
			{
				Name:   "playlists",
				Usage:  "List library playlists on the platform",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.RemotePlaylists,
			},
			{
				Name:   "status",
				Usage:  "Show which local playlists are synced",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.Status,
			},
			{
				Name:      "unlink",
				Usage:     "Forget a playlist's remote link",
				ArgsUsage: "ID",
				Action:    r.Unlink,
			},
			{
				Name:      "delete-remote",
				Usage:     "Delete a playlist's remote copy and forget the link",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation"},
				},
				Action: r.DeleteRemote,
			},
			{
				Name:   "token",
				Usage:  "Authorize in a browser and store the Music-User-Token",
				Action: r.Token,
			},
		},
	}
}
