package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
		{
			name:   "tabs and newlines",
			title:  "Eye of\tthe\nTiger",
			artist: "Survivor",
			want:   "eye of the tiger|survivor",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		ms   int
		want string
	}{
		{0, "-:--"},
		{-5, "-:--"},
		{999, "0:00"},
		{61_000, "1:01"},
		{245_000, "4:05"},
		{3_725_000, "1:02:05"},
	}

	for _, tt := range tc {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	t.Run("empty defaults to info", func(t *testing.T) {
		lvl, err := ParseLevel("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lvl != log.InfoLevel {
			t.Errorf("expected info level, got %v", lvl)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		lvl, err := ParseLevel(" DEBUG ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lvl != log.DebugLevel {
			t.Errorf("expected debug level, got %v", lvl)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		if _, err := ParseLevel("loud"); err == nil {
			t.Error("expected error for unknown level")
		}
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/.plylist"); got != filepath.Join(home, ".plylist") {
		t.Errorf("ExpandPath() = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute paths should be unchanged, got %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" rock, ,workout,  80s ")
	want := []string{"rock", "workout", "80s"}
	if len(got) != len(want) {
		t.Fatalf("SplitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if SplitList("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty ids, got %q and %q", a, b)
	}
}
