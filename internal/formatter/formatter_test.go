package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
	th "github.com/desertthunder/plylist/internal/testing"
)

func samplePlaylist() *models.Playlist {
	p := models.NewPlaylist("Test Playlist", "A test playlist")
	p.AddTag("test")
	p.AddTrack(models.Track{
		Title:             "Song One",
		Artist:            "Artist One",
		Album:             "Album One",
		DurationMS:        180000,
		ISRC:              "USRC12345678",
		AdditionalArtists: []string{"Guest A", "Guest B"},
	})
	p.AddTrack(models.Track{
		Title:  "Song, Two",
		Artist: "Artist Two",
	})
	p.SetPlatformID(models.AppleMusic, "p.1")
	p.Tracks[0].SetPlatformID(models.AppleMusic, "100")
	return p
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"json": JSON, "CSV": CSV, "markdown": Markdown, "md": Markdown, "text": Text, "txt": Text}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("%s: expected %s, got %s (%v)", in, want, got, err)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	if FormatFromPath("out/list.csv") != CSV || FormatFromPath("noext") != JSON {
		t.Error("unexpected format from path")
	}
	if Markdown.Importable() || !CSV.Importable() {
		t.Error("unexpected importable formats")
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if lines[0] != "Title,Artist,Album,Duration (ms),ISRC,Additional Artists" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != `Song One,Artist One,Album One,180000,USRC12345678,"Guest A, Guest B"` {
			t.Errorf("unexpected first row: %s", lines[1])
		}
		if lines[2] != `"Song, Two",Artist Two,,,,` {
			t.Errorf("unexpected second row: %s", lines[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"**Description**: A test playlist",
			"**Tags**: test",
			"**Tracks**: 2",
			"**Duration**: 3m 0s",
			"1. Artist One - Song One (Album One) [3:00]",
			"2. Artist Two - Song, Two [-:--]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist") {
			t.Error("text missing playlist name")
		}
		if !strings.Contains(output, "1. Song One by Artist One, Guest A, Guest B (from Album One)") {
			t.Errorf("text missing track line:\n%s", output)
		}
	})

	t.Run("Encode write failure", func(t *testing.T) {
		err := Encode(&th.FWriter{}, samplePlaylist(), JSON)
		if err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("Encode unsupported", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, samplePlaylist(), Format("xml")); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestImporters(t *testing.T) {
	t.Run("JSON round trip is lossless", func(t *testing.T) {
		original := samplePlaylist()

		var buf bytes.Buffer
		if err := Encode(&buf, original, JSON); err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		got, err := Decode(&buf, JSON, "")
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if got.ID != original.ID || got.Name != original.Name || got.Description != original.Description {
			t.Errorf("playlist fields changed: %+v", got)
		}
		if !got.CreatedAt.Equal(original.CreatedAt) || !got.UpdatedAt.Equal(original.UpdatedAt) {
			t.Error("timestamps changed")
		}
		if id, _ := got.PlatformID(models.AppleMusic); id != "p.1" {
			t.Errorf("sync link lost, got %q", id)
		}
		if len(got.Tracks) != 2 || got.Tracks[0].ID != original.Tracks[0].ID {
			t.Fatalf("tracks changed: %+v", got.Tracks)
		}
		first := got.Tracks[0]
		if first.DurationMS != 180000 || first.ISRC != "USRC12345678" || len(first.AdditionalArtists) != 2 {
			t.Errorf("track fields changed: %+v", first)
		}
		if id, _ := first.PlatformID(models.AppleMusic); id != "100" {
			t.Errorf("track link lost, got %q", id)
		}
		if got.Tracks[1].DurationMS != 0 {
			t.Error("unknown duration should stay unknown")
		}
	})

	t.Run("JSON invalid", func(t *testing.T) {
		if _, err := ImportJSON(strings.NewReader("{")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := ImportJSON(strings.NewReader(`{"playlist_id":"x"}`)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected missing name to fail, got %v", err)
		}
	})

	t.Run("CSV round trip keeps track fields", func(t *testing.T) {
		data, err := ExportToCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		got, err := ImportCSV(bytes.NewReader(data), "imported")
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}

		if got.Name != "imported" || len(got.Tracks) != 2 {
			t.Fatalf("unexpected playlist %+v", got)
		}
		first := got.Tracks[0]
		if first.Title != "Song One" || first.DurationMS != 180000 || first.ISRC != "USRC12345678" {
			t.Errorf("unexpected track %+v", first)
		}
		if len(first.AdditionalArtists) != 2 || first.AdditionalArtists[1] != "Guest B" {
			t.Errorf("unexpected additional artists %v", first.AdditionalArtists)
		}
		if got.Tracks[1].Title != "Song, Two" || got.Tracks[1].DurationMS != 0 {
			t.Errorf("unexpected second track %+v", got.Tracks[1])
		}
		if len(first.PlatformIDs) != 0 {
			t.Error("CSV import should not carry platform ids")
		}
		if first.ID == "" {
			t.Error("expected imported tracks to get ids")
		}
	})

	t.Run("CSV reordered columns", func(t *testing.T) {
		input := "Artist,Title\nBand,Tune\n"
		got, err := ImportCSV(strings.NewReader(input), "x")
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if got.Tracks[0].Title != "Tune" || got.Tracks[0].Artist != "Band" {
			t.Errorf("unexpected track %+v", got.Tracks[0])
		}
	})

	t.Run("CSV errors", func(t *testing.T) {
		cases := []struct {
			name  string
			input string
		}{
			{"empty", ""},
			{"missing artist column", "Title\nSong\n"},
			{"blank artist", "Title,Artist\nSong,\n"},
			{"bad duration", "Title,Artist,Duration (ms)\nSong,Band,abc\n"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := ImportCSV(strings.NewReader(tc.input), "x"); !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			})
		}
	})

	t.Run("Decode unsupported", func(t *testing.T) {
		if _, err := Decode(strings.NewReader(""), Markdown, "x"); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}
