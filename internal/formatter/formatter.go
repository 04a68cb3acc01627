// package formatter converts playlists to and from JSON and CSV, and renders Markdown and plain text listings
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/plylist/internal/models"
	"github.com/desertthunder/plylist/internal/shared"
)

// Format names an export or import encoding.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

// CSVHeader is the column layout shared by CSV export and import.
var CSVHeader = []string{"Title", "Artist", "Album", "Duration (ms)", "ISRC", "Additional Artists"}

const artistSeparator = ", "

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return JSON
}

// Importable reports whether f can be decoded back into a playlist.
func (f Format) Importable() bool {
	return f == JSON || f == CSV
}

// Encode writes p to w in format f.
func Encode(w io.Writer, p *models.Playlist, f Format) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case JSON:
		data, err = ExportToJSON(p)
	case CSV:
		data, err = ExportToCSV(p)
	case Markdown:
		data, err = ExportToMarkdown(p)
	case Text:
		data, err = ExportToText(p)
	default:
		return fmt.Errorf("%w: %q", shared.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Decode reads a playlist in format f. name is used for CSV input, which carries no playlist metadata.
func Decode(r io.Reader, f Format, name string) (*models.Playlist, error) {
	switch f {
	case JSON:
		return ImportJSON(r)
	case CSV:
		return ImportCSV(r, name)
	default:
		return nil, fmt.Errorf("%w: cannot import %q", shared.ErrUnsupportedFormat, f)
	}
}

// ExportToJSON encodes the full playlist record, pretty-printed.
func ExportToJSON(p *models.Playlist) ([]byte, error) {
	data, err := shared.MarshalJSON(p, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportJSON decodes a full playlist record, keeping its ids.
func ImportJSON(r io.Reader) (*models.Playlist, error) {
	var p models.Playlist
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON playlist: %v", shared.ErrInvalidInput, err)
	}
	if p.Tracks == nil {
		p.Tracks = []models.Track{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExportToCSV converts tracks to CSV with columns: Title, Artist, Album, Duration (ms), ISRC, Additional Artists
//
// Unknown durations are written as an empty cell.
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range p.Tracks {
		duration := ""
		if track.DurationMS > 0 {
			duration = strconv.Itoa(track.DurationMS)
		}
		record := []string{
			track.Title,
			track.Artist,
			track.Album,
			duration,
			track.ISRC,
			strings.Join(track.AdditionalArtists, artistSeparator),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ImportCSV builds a new playlist named name from CSV rows. Columns are matched by header name;
// Title and Artist are required.
func ImportCSV(r io.Reader, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name is required for CSV import", shared.ErrInvalidInput)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", shared.ErrInvalidInput)
	} else if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", shared.ErrInvalidInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range CSVHeader[:2] {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: CSV is missing the %q column", shared.ErrInvalidInput, required)
		}
	}

	field := func(record []string, column string) string {
		if i, ok := cols[column]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	p := models.NewPlaylist(name, "")
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, line, err)
		}

		track := models.Track{
			Title:  field(record, "Title"),
			Artist: field(record, "Artist"),
			Album:  field(record, "Album"),
			ISRC:   field(record, "ISRC"),
		}
		if d := field(record, "Duration (ms)"); d != "" {
			ms, err := strconv.Atoi(d)
			if err != nil || ms < 0 {
				return nil, fmt.Errorf("%w: line %d: duration %q", shared.ErrInvalidInput, line, d)
			}
			track.DurationMS = ms
		}
		if extra := field(record, "Additional Artists"); extra != "" {
			track.AdditionalArtists = shared.SplitList(extra)
		}
		if err := track.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p.AddTrack(track)
	}

	p.UpdatedAt = p.CreatedAt
	return p, nil
}

// ExportToMarkdown renders a read-only Markdown listing.
func ExportToMarkdown(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))

	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", p.Description))
	}
	if len(p.Tags) > 0 {
		buf.WriteString(fmt.Sprintf("**Tags**: %s\n", strings.Join(p.Tags, ", ")))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(p.Tracks)))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", p.DurationString()))

	buf.WriteString("## Tracks\n\n")
	for i, track := range p.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, shared.FormatDuration(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// ExportToText renders a plain text listing.
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.Name))
	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", p.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(p.Tracks)))

	for i, track := range p.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, track.String()))
	}

	return buf.Bytes(), nil
}
