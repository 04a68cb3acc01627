package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override config values.
const (
	EnvTeamID         = "APPLE_MUSIC_TEAM_ID"
	EnvKeyID          = "APPLE_MUSIC_KEY_ID"
	EnvPrivateKeyPath = "APPLE_MUSIC_PRIVATE_KEY_PATH"
	EnvUserToken      = "APPLE_MUSIC_USER_TOKEN"
	EnvStorefront     = "APPLE_MUSIC_STOREFRONT"
	EnvStorageDir     = "PLYLIST_STORAGE_DIR"
)

// LoadEnv loads the given dotenv files (".env" when none are given) into the process environment.
//
// Missing files are skipped; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, p, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and storage location with any non-empty environment variables.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	override(&c.AppleMusic.TeamID, EnvTeamID)
	override(&c.AppleMusic.KeyID, EnvKeyID)
	override(&c.AppleMusic.PrivateKeyPath, EnvPrivateKeyPath)
	override(&c.AppleMusic.UserToken, EnvUserToken)
	override(&c.AppleMusic.Storefront, EnvStorefront)
	override(&c.Storage.Dir, EnvStorageDir)
}
