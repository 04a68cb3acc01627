package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileLogger(t *testing.T) {
	t.Run("writes to rotated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "plylist.log")
		logger, err := NewFileLogger(LogConfig{File: path, Level: "debug", MaxSize: 1})
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}

		logger.Debug("sync started", "playlist", "abc")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file should exist: %v", err)
		}
		if !strings.Contains(string(data), "sync started") || !strings.Contains(string(data), "playlist=abc") {
			t.Errorf("unexpected log contents: %s", data)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := NewFileLogger(LogConfig{}); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plylist.log")
		if _, err := NewFileLogger(LogConfig{File: path, Level: "chatty"}); err == nil {
			t.Error("expected error for invalid level")
		}
	})
}
