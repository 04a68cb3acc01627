package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plylist/internal/shared"
	tu "github.com/desertthunder/plylist/internal/testing"
)

// stubBrowser replaces openBrowser for the duration of the test.
func stubBrowser(t *testing.T, fn func(url string) error) {
	t.Helper()
	orig := openBrowser
	openBrowser = fn
	t.Cleanup(func() { openBrowser = orig })
}

// postBody returns a browser stub that posts body to the page's token endpoint.
func postBody(body string) func(string) error {
	return func(url string) error {
		go func() {
			resp, err := http.Post(url+"token", "application/json", strings.NewReader(body))
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func newTokenRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	r, out := newTestRunner(t, nil)
	withCredentials(t, r.config)
	r.config.AppleMusic.UserToken = ""
	r.config.Server.Port = 0
	return r, out
}

func TestToken(t *testing.T) {
	t.Run("stores the captured token in the config file", func(t *testing.T) {
		r, out := newTokenRunner(t)
		tu.MustWriteFile(t, r.configPath, "[apple_music]\nstorefront = \"gb\"\n")
		stubBrowser(t, postBody(`{"token":"captured-token"}`))

		mustRun(t, r, "apple-music", "token")

		saved, err := shared.LoadConfig(r.configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if saved.AppleMusic.UserToken != "captured-token" {
			t.Errorf("expected the token to be saved, got %q", saved.AppleMusic.UserToken)
		}
		if saved.AppleMusic.Storefront != "gb" {
			t.Errorf("expected existing settings to survive, got storefront %q", saved.AppleMusic.Storefront)
		}
		if saved.AppleMusic.TeamID != "" {
			t.Error("runtime credentials must not be written to the file")
		}
		if r.config.AppleMusic.UserToken != "captured-token" {
			t.Error("expected the running config to pick up the token")
		}
		if !strings.Contains(out.String(), "Authorization successful") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("authorization errors", func(t *testing.T) {
		r, _ := newTokenRunner(t)
		stubBrowser(t, postBody(`{"error":"user declined"}`))

		err := run(r, "apple-music", "token")
		if !errors.Is(err, shared.ErrAuthFailed) || !strings.Contains(err.Error(), "user declined") {
			t.Errorf("expected an authorization failure, got %v", err)
		}
	})

	t.Run("times out and prints the URL when no browser opens", func(t *testing.T) {
		r, out := newTokenRunner(t)
		stubBrowser(t, func(string) error { return errors.New("no browser") })
		orig := tokenTimeout
		tokenTimeout = 50 * time.Millisecond
		t.Cleanup(func() { tokenTimeout = orig })

		err := run(r, "apple-music", "token")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(out.String(), "Open this URL in your browser: http://127.0.0.1:") {
			t.Errorf("expected the URL to be printed:\n%s", out.String())
		}
	})

	t.Run("needs credentials", func(t *testing.T) {
		r, _ := newTestRunner(t, nil)
		stubBrowser(t, func(string) error { t.Error("browser must not open"); return nil })

		if err := run(r, "apple-music", "token"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("writes config and creates the file store", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(shared.EnvStorageDir, filepath.Join(dir, "data"))

		out := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{
			ConfigPath: filepath.Join(dir, "config.toml"),
			Logger:     shared.NewLogger(io.Discard),
			Output:     out,
		})
		t.Cleanup(func() { r.Close() })

		mustRun(t, r, "setup")

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertDirExists(t, filepath.Join(dir, "data"))
		if !strings.Contains(out.String(), "Storage (file)") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("keeps an existing sqlite config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		db := filepath.ToSlash(filepath.Join(dir, "plylist.db"))
		tu.MustWriteFile(t, path, "[storage]\ndriver = \"sqlite\"\ndatabase = \""+db+"\"\n")

		out := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(io.Discard), Output: out})
		t.Cleanup(func() { r.Close() })

		mustRun(t, r, "setup")

		tu.AssertFileExists(t, filepath.Join(dir, "plylist.db"))
		if !strings.Contains(out.String(), "Storage (sqlite)") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
		if !strings.Contains(tu.MustReadFile(t, path), "sqlite") {
			t.Error("existing config must not be overwritten")
		}
	})
}
