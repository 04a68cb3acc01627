package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/server"
	"github.com/desertthunder/plylist/internal/shared"
)

const appName = "plylist"

var (
	openBrowser  = shared.OpenBrowser
	tokenTimeout = 2 * time.Minute
)

// developerTokener is implemented by platforms that sign their own developer token.
type developerTokener interface {
	DeveloperToken() (string, error)
}

// Token serves the MusicKit authorization page, waits for the Music-User-Token and stores it in the config file.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	if r.platform == nil {
		p, err := r.newPlatform()
		if err != nil {
			return err
		}
		r.platform = p
	}

	dt, ok := r.platform.(developerTokener)
	if !ok {
		return fmt.Errorf("%w: %s does not use MusicKit tokens", shared.ErrNotImplemented, r.platformName())
	}
	developerToken, err := dt.DeveloperToken()
	if err != nil {
		return err
	}

	token, err := r.captureToken(ctx, developerToken)
	if err != nil {
		return err
	}

	if err := r.saveUserToken(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Music-User-Token saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: %s apple-music sync-to ID\n", appName)
	return nil
}

// captureToken runs the token page until one result arrives, the server fails, or tokenTimeout passes.
func (r *Runner) captureToken(ctx context.Context, developerToken string) (string, error) {
	handler := server.NewTokenHandler(developerToken, appName)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", r.cfg().Server.Address())
	if err != nil {
		return "", fmt.Errorf("%w: failed to listen on %s: %v", shared.ErrServiceUnavailable, r.cfg().Server.Address(), err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("token server shutdown failed", "error", err)
		}
	}()

	url := fmt.Sprintf("http://%s/", ln.Addr())
	r.logger.Info("token server listening", "url", url)
	r.writePlain("Opening %s to authorize Apple Music...\n", url)
	if err := openBrowser(url); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL in your browser: %s\n", url)
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return result.Token, nil
	case err := <-serverErr:
		return "", fmt.Errorf("%w: token server: %v", shared.ErrServiceUnavailable, err)
	case <-time.After(tokenTimeout):
		return "", fmt.Errorf("%w: no authorization within %s", shared.ErrTimeout, tokenTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// saveUserToken writes token into the config file, leaving environment overrides out of it.
func (r *Runner) saveUserToken(token string) error {
	fileCfg, err := shared.LoadConfig(r.configPath)
	if errors.Is(err, fs.ErrNotExist) {
		fileCfg = shared.DefaultConfig()
	} else if err != nil {
		return err
	}

	fileCfg.AppleMusic.UserToken = token
	if err := shared.SaveConfig(r.configPath, fileCfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.cfg().AppleMusic.UserToken = token
	return nil
}
