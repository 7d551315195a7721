package formatter

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/playlist"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"gopkg.in/yaml.v3"
)

func sampleReport() *models.Report {
	pop := 72
	return &models.Report{
		Playlist: models.PlaylistSummary{
			Name:       "Road Trip",
			Owner:      "Sam",
			TrackCount: 12,
			Platform:   models.Spotify,
			ImageURL:   "https://img.test/cover.jpg",
		},
		Analysis: &models.Analysis{
			TrackCount:      12,
			Platform:        models.Spotify,
			TopArtists:      []models.Count{{Name: "Artist | One", Count: 7}, {Name: "Artist Two", Count: 5}},
			UniqueArtists:   2,
			ArtistDiversity: 0.17,
			Popularity:      &models.PopularityStats{Available: true, Average: 72, MainstreamLevel: "Mainstream"},
			General: models.GeneralStats{
				AvgDurationMS: 205000,
				TopAlbums:     []models.Count{{Name: "Album One", Count: 7}},
				UniqueAlbums:  1,
			},
		},
		Recommendations: []models.Track{
			{
				ID:          "rec1",
				Name:        "Song, One",
				Artist:      "Artist One",
				Album:       "Album One",
				DurationMS:  185000,
				Popularity:  &pop,
				ExternalURL: "https://open.spotify.com/track/rec1",
				Platform:    models.Spotify,
			},
		},
		SkippedArtists: []models.ArtistMiss{{Artist: "Ghost", Reason: "artist not found"}},
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"", Text}, {"TEXT", Text}, {"json", JSON}, {"yml", YAML}, {"md", Markdown}, {" csv ", CSV},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFormatDuration(t *testing.T) {
	tc := map[int]string{0: "0:00", -5: "0:00", 59000: "0:59", 185000: "3:05", 3600000: "60:00"}
	for ms, want := range tc {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ReportToCSV", func(t *testing.T) {
		data, err := ReportToCSV(sampleReport())
		if err != nil {
			t.Fatalf("ReportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected header and one row, got %d records", len(records))
		}
		if strings.Join(records[0], ",") != "ID,Name,Artist,Album,Duration,Platform,URL" {
			t.Errorf("CSV missing headers, got: %v", records[0])
		}
		if records[1][1] != "Song, One" || records[1][4] != "185" {
			t.Errorf("unexpected row: %v", records[1])
		}
	})

	t.Run("ReportToMarkdown", func(t *testing.T) {
		data, err := ReportToMarkdown(sampleReport())
		if err != nil {
			t.Fatalf("ReportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Road Trip",
			"![Cover](https://img.test/cover.jpg)",
			"**Tracks**: 12",
			`| Artist \| One | 7 |`,
			"- Popularity: 72.0 (Mainstream)",
			"1. Artist One - [Song, One](https://open.spotify.com/track/rec1) (Album One) [3:05]",
			"- Ghost: artist not found",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ReportToMarkdown fallback note", func(t *testing.T) {
		r := sampleReport()
		r.Fallback = true
		data, _ := ReportToMarkdown(r)
		if !strings.Contains(string(data), "come from YouTube Music") {
			t.Error("expected fallback note")
		}
	})

	t.Run("ReportToText", func(t *testing.T) {
		data, err := ReportToText(sampleReport(), nil)
		if err != nil {
			t.Fatalf("ReportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{"Playlist: Road Trip", " 1. Artist | One (7)", "Recommendations (1)", "Artist One - Song, One [3:05]", "skipped Ghost: artist not found"} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ReportToText analysis only", func(t *testing.T) {
		r := sampleReport()
		r.Recommendations, r.SkippedArtists = nil, nil
		data, _ := ReportToText(r, DefaultPalette)
		if strings.Contains(string(data), "Recommendations") {
			t.Error("expected no recommendations section for an analysis report")
		}
	})

	t.Run("ReportToJSON", func(t *testing.T) {
		data, err := ReportToJSON(sampleReport())
		if err != nil {
			t.Fatalf("ReportToJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		top := decoded["analysis"].(map[string]any)["top_artists"].([]any)
		if pair := top[0].([]any); pair[0] != "Artist | One" || pair[1] != float64(7) {
			t.Errorf("expected top artists as pairs, got %v", top[0])
		}
		if decoded["recommendations"].([]any)[0].(map[string]any)["id"] != "rec1" {
			t.Errorf("unexpected recommendations: %v", decoded["recommendations"])
		}
	})

	t.Run("ReportToJSON nil analysis", func(t *testing.T) {
		data, err := ReportToJSON(&models.Report{Playlist: models.PlaylistSummary{Name: "Empty"}})
		if err != nil {
			t.Fatalf("ReportToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"analysis": {}`) {
			t.Errorf("expected empty analysis object, got %s", data)
		}
	})

	t.Run("ReportToYAML", func(t *testing.T) {
		data, err := ReportToYAML(sampleReport())
		if err != nil {
			t.Fatalf("ReportToYAML failed: %v", err)
		}

		var decoded models.Report
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if decoded.Playlist.Name != "Road Trip" || decoded.Analysis.TopArtists[1].Name != "Artist Two" {
			t.Errorf("unexpected decoded report: %+v", decoded.Playlist)
		}
	})

	t.Run("Render dispatch", func(t *testing.T) {
		for _, f := range Formats {
			if data, err := Render(sampleReport(), f, nil); err != nil || len(data) == 0 {
				t.Errorf("Render(%s) = %d bytes, %v", f, len(data), err)
			}
		}
		if _, err := Render(sampleReport(), "xml", nil); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestValidationToText(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out := string(ValidationToText(&playlist.Validation{Valid: true, Name: "Mix", Platform: models.Spotify, TrackCount: 4}, nil))
		if !strings.Contains(out, "✓ valid: Mix (spotify, 4 tracks)") || !strings.Contains(out, "Not enough tracks") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		out := string(ValidationToText(&playlist.Validation{Error: "bad url"}, nil))
		if out != "✗ invalid: bad url\n" {
			t.Errorf("unexpected output: %q", out)
		}
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "mix.md")
	if err := WriteFile(path, []byte("# Mix\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	tu.AssertFileExists(t, path)
	if got := string(tu.MustReadFile(t, path)); got != "# Mix\n" {
		t.Errorf("unexpected content %q", got)
	}
}
