package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within the run
	Total   int    // Total steps in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ValidatePlaylist Phase = iota
	FetchPlaylist
	AnalyzePlaylist
	Recommend
	Fallback
)

func (p Phase) String() string {
	switch p {
	case ValidatePlaylist:
		return "validate_playlist"
	case FetchPlaylist:
		return "fetch_playlist"
	case AnalyzePlaylist:
		return "analyze_playlist"
	case Recommend:
		return "recommend"
	case Fallback:
		return "fallback"
	default:
		return ""
	}
}

func validateUpdate(step, total int, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Validating %s...", url),
	}
}

func fetchingPlaylistUpdate(step, total int, platform models.Platform) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching playlist from %s...", platform),
	}
}

func foundPlaylistUpdate(step, total int, p *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", p.Name, len(p.Tracks)),
		Data:    p.Summary(),
	}
}

func analyzingUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AnalyzePlaylist,
		Step:    step,
		Total:   total,
		Message: "Analyzing playlist...",
	}
}

func recommendingUpdate(step, total, n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recommend,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Finding %d recommendations...", n),
	}
}

func fallbackUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fallback,
		Step:    step,
		Total:   total,
		Message: "No Spotify recommendations found, trying YouTube Music...",
	}
}
