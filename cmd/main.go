package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
)

// Process exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
	exitPlatform = 3
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{
		Logger:      logger,
		Interactive: isatty.IsTerminal(os.Stdout.Fd()),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(runner).Run(ctx, os.Args)
	stop()

	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close store", "error", cerr)
	}
	if err != nil {
		logger.Error(err)
	}
	os.Exit(exitCode(err))
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "plylist",
		Usage:   "Manage local playlists and mirror them to Apple Music",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   shared.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

// exitCode maps an error to the process exit status: 2 for missing local or remote records, 3 for other platform
// failures, 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrTrackNotFound),
		errors.Is(err, shared.ErrRemoteNotFound):
		return exitNotFound
	}

	var pe *services.PlatformError
	if errors.As(err, &pe) {
		return exitPlatform
	}
	return exitError
}
