// package formatter renders playlist reports and validation results as text, Markdown, CSV, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/playlist"
	"github.com/desertthunder/mixtape/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	CSV      Format = "csv"
)

// Formats lists every supported format in display order.
var Formats = []Format{Text, JSON, YAML, Markdown, CSV}

// ParseFormat maps a flag value onto a [Format]. "md" and "yml" are accepted as aliases; "" selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Render encodes report in format. Text output uses palette; nil means plain.
func Render(report *models.Report, format Format, palette *Palette) ([]byte, error) {
	switch format {
	case Text:
		return ReportToText(report, palette)
	case JSON:
		return ReportToJSON(report)
	case YAML:
		return ReportToYAML(report)
	case Markdown:
		return ReportToMarkdown(report)
	case CSV:
		return ReportToCSV(report)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "0:00"
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ReportToJSON encodes report as indented JSON. A nil analysis is written as an empty object.
func ReportToJSON(report *models.Report) ([]byte, error) {
	body := struct {
		*models.Report
		Analysis any `json:"analysis"`
	}{Report: report, Analysis: report.Analysis}
	if report.Analysis == nil {
		body.Analysis = struct{}{}
	}

	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ReportToYAML encodes report as YAML.
func ReportToYAML(report *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportToCSV writes one row per recommended track with columns: ID, Name, Artist, Album, Duration, Platform, URL
func ReportToCSV(report *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Duration", "Platform", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range report.Recommendations {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationMS / 1000),
			string(track.Platform),
			track.ExternalURL,
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

// ReportToMarkdown renders report as a Markdown document with an optional cover image.
func ReportToMarkdown(report *models.Report) ([]byte, error) {
	var buf bytes.Buffer
	p := report.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if p.ImageURL != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.ImageURL)
	}
	fmt.Fprintf(&buf, "**Owner**: %s\n", p.Owner)
	fmt.Fprintf(&buf, "**Platform**: %s\n", p.Platform)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", p.TrackCount)

	if a := report.Analysis; a != nil {
		buf.WriteString("## Analysis\n\n")
		fmt.Fprintf(&buf, "- Unique artists: %d (diversity %.2f)\n", a.UniqueArtists, a.ArtistDiversity)
		fmt.Fprintf(&buf, "- Unique albums: %d\n", a.General.UniqueAlbums)
		fmt.Fprintf(&buf, "- Average duration: %s\n", FormatDuration(int(a.General.AvgDurationMS)))
		if a.Popularity != nil {
			fmt.Fprintf(&buf, "- Popularity: %.1f (%s)\n", a.Popularity.Average, a.Popularity.MainstreamLevel)
		}
		buf.WriteString("\n### Top Artists\n\n")
		buf.WriteString("| Artist | Tracks |\n| --- | --- |\n")
		for _, c := range a.TopArtists {
			fmt.Fprintf(&buf, "| %s | %d |\n", escapeCell(c.Name), c.Count)
		}
		if len(a.General.TopAlbums) > 0 {
			buf.WriteString("\n### Top Albums\n\n")
			buf.WriteString("| Album | Tracks |\n| --- | --- |\n")
			for _, c := range a.General.TopAlbums {
				fmt.Fprintf(&buf, "| %s | %d |\n", escapeCell(c.Name), c.Count)
			}
		}
		buf.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		buf.WriteString("## Recommendations\n\n")
		if report.Fallback {
			buf.WriteString("_No Spotify recommendations were found; these come from YouTube Music._\n\n")
		}
		for i, track := range report.Recommendations {
			title := track.Name
			if track.ExternalURL != "" {
				title = fmt.Sprintf("[%s](%s)", track.Name, track.ExternalURL)
			}
			fmt.Fprintf(&buf, "%d. %s - %s (%s) [%s]\n", i+1, track.Artist, title, track.Album, FormatDuration(track.DurationMS))
		}
		buf.WriteString("\n")
	}

	if len(report.SkippedArtists) > 0 {
		buf.WriteString("## Skipped Artists\n\n")
		for _, m := range report.SkippedArtists {
			fmt.Fprintf(&buf, "- %s: %s\n", m.Artist, m.Reason)
		}
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ReportToText renders report for a terminal.
func ReportToText(report *models.Report, palette *Palette) ([]byte, error) {
	if palette == nil {
		palette = PlainPalette()
	}

	var buf bytes.Buffer
	p := report.Playlist

	fmt.Fprintf(&buf, "%s\n", palette.Title(fmt.Sprintf("Playlist: %s", p.Name)))
	fmt.Fprintf(&buf, "Owner: %s  Platform: %s  Tracks: %d\n\n", p.Owner, p.Platform, p.TrackCount)

	if a := report.Analysis; a != nil {
		fmt.Fprintf(&buf, "%s\n", palette.Heading("Top artists"))
		for i, c := range a.TopArtists {
			fmt.Fprintf(&buf, "%2d. %s %s\n", i+1, c.Name, palette.Muted(fmt.Sprintf("(%d)", c.Count)))
		}
		fmt.Fprintf(&buf, "\nUnique artists: %d  Diversity: %.2f\n", a.UniqueArtists, a.ArtistDiversity)
		fmt.Fprintf(&buf, "Unique albums: %d  Average duration: %s\n", a.General.UniqueAlbums, FormatDuration(int(a.General.AvgDurationMS)))
		if a.Popularity != nil {
			fmt.Fprintf(&buf, "Popularity: %.1f %s\n", a.Popularity.Average, palette.OK(a.Popularity.MainstreamLevel))
		}
		buf.WriteString("\n")
	}

	if report.Recommendations != nil || report.SkippedArtists != nil {
		fmt.Fprintf(&buf, "%s\n", palette.Heading(fmt.Sprintf("Recommendations (%d)", len(report.Recommendations))))
		if report.Fallback {
			fmt.Fprintf(&buf, "%s\n", palette.Warn("No Spotify recommendations found, showing YouTube Music results"))
		}
		if len(report.Recommendations) == 0 {
			fmt.Fprintf(&buf, "%s\n", palette.Muted("No recommendations found"))
		}
		for i, t := range report.Recommendations {
			fmt.Fprintf(&buf, "%2d. %s - %s %s\n", i+1, t.Artist, t.Name, palette.Muted("["+FormatDuration(t.DurationMS)+"]"))
			if t.ExternalURL != "" {
				fmt.Fprintf(&buf, "    %s\n", palette.Muted(t.ExternalURL))
			}
		}
		for _, m := range report.SkippedArtists {
			fmt.Fprintf(&buf, "%s %s: %s\n", palette.Warn("skipped"), m.Artist, m.Reason)
		}
	}

	return buf.Bytes(), nil
}

// ValidationToText renders a validation result as one or two lines.
func ValidationToText(v *playlist.Validation, palette *Palette) []byte {
	if palette == nil {
		palette = PlainPalette()
	}

	if !v.Valid {
		return fmt.Appendf(nil, "%s %s\n", palette.Err("✗ invalid:"), v.Error)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s (%s, %d tracks)\n", palette.OK("✓ valid:"), v.Name, v.Platform, v.TrackCount)
	if !v.HasEnoughTracks {
		fmt.Fprintf(&buf, "%s\n", palette.Warn("Not enough tracks for recommendations"))
	}
	return buf.Bytes()
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
