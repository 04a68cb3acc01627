package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/repositories"
	"github.com/desertthunder/plylist/internal/services"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store, library and sync engine are opened on first use so commands that only touch config never create
// a storage directory.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	interactive bool
	store       repositories.PlaylistStore
	platform    services.Platform
	library     *tasks.Library
	engine      *tasks.SyncEngine
	confirm     func(title string) (bool, error)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Interactive bool                       // allow prompts and spinners
	Store       repositories.PlaylistStore // overrides [shared.StorageConfig]
	Platform    services.Platform          // overrides the Apple Music adapter
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		interactive: opts.Interactive,
		store:       opts.Store,
		platform:    opts.Platform,
		confirm:     confirmPrompt,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		createCommand, listCommand, showCommand, deleteCommand, renameCommand, describeCommand, tagCommand,
		addTrackCommand, removeTrackCommand, moveTrackCommand, exportCommand, importCommand, duplicateCommand,
		mergeCommand, statsCommand, setupCommand, appleMusicCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before resolves the config path, loads config and dotenv overrides, and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if p := cmd.String("config"); p != "" && (cmd.IsSet("config") || r.configPath == "") {
		r.configPath = shared.ExpandPath(p)
	}
	if r.configPath == "" {
		r.configPath = shared.DefaultConfigPath()
	}

	if r.config == nil {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			r.config = config
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			r.config = shared.DefaultConfig()
		default:
			return ctx, err
		}
	}

	if err := shared.LoadEnv(); err != nil {
		return ctx, err
	}
	r.config.ApplyEnv()

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	if level != "" {
		lvl, err := shared.ParseLevel(level)
		if err != nil {
			return ctx, err
		}
		shared.SetLogLevel(r.logger, lvl)
	}

	return ctx, nil
}

// SetLogger replaces the runner's logger. Built components keep the logger they were created with.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// lib opens the configured store and wraps it in a [tasks.Library].
func (r *Runner) lib() (*tasks.Library, error) {
	if r.library != nil {
		return r.library, nil
	}
	if r.store == nil {
		store, err := repositories.Open(r.cfg().Storage)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	r.library = tasks.NewLibrary(r.store, r.logger)
	return r.library, nil
}

// syncEngine builds the engine over the library and the platform adapter.
func (r *Runner) syncEngine() (*tasks.SyncEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	lib, err := r.lib()
	if err != nil {
		return nil, err
	}
	if r.platform == nil {
		if r.platform, err = r.newPlatform(); err != nil {
			return nil, err
		}
	}
	r.engine = tasks.NewSyncEngine(lib, tasks.SyncOptsFromConfig(r.cfg().Sync), r.platform)
	return r.engine, nil
}

func (r *Runner) newPlatform() (services.Platform, error) {
	if r.httpClient == nil {
		return services.NewPlatform(models.AppleMusic, r.cfg(), r.logger)
	}
	return services.NewAppleMusicService(r.cfg().AppleMusic, services.AppleMusicOpts{
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	}), nil
}

// platformName returns the key of the configured platform.
func (r *Runner) platformName() string {
	if r.platform != nil {
		return r.platform.Name()
	}
	return models.AppleMusic
}

// Close releases the store.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// confirmPrompt asks a yes/no question on the terminal.
func confirmPrompt(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
