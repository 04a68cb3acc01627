package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/repositories"
	"github.com/desertthunder/plylist/internal/shared"
)

// Setup writes the config file and initializes the configured store.
//
// For the sqlite driver, opening the store runs the schema migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = shared.DefaultConfigPath()
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil && cmd.Bool("force"):
		if err := shared.SaveConfig(path, shared.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		r.logger.Info("config file overwritten", "path", path)
	case statErr == nil:
		r.logger.Info("config file exists, keeping it", "path", path)
	default:
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	config.ApplyEnv()
	r.config = config
	r.configPath = path

	lib, err := r.lib()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	r.writePlain("✓ Config: %s\n", path)
	r.writePlain("✓ Storage (%s): %s\n", driverName(config.Storage.Driver), lib.Store().Location())
	r.writePlainln("Next steps:")
	r.writePlain("1. Set apple_music.team_id, key_id and private_key_path in %s\n", path)
	r.writePlain("2. Run '%s apple-music token' to authorize your library\n", appName)
	return nil
}

func driverName(d string) string {
	if d == "" {
		return repositories.DriverFile
	}
	return d
}
