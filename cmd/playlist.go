package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func playlistURL(cmd *cli.Command) (string, error) {
	url := strings.TrimSpace(cmd.StringArg("url"))
	if url == "" {
		return "", fmt.Errorf("%w: playlist URL is required", shared.ErrMissingArgument)
	}
	return url, nil
}

// Analyze fetches a playlist and prints its statistics.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	url, err := playlistURL(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if format == formatter.CSV {
		return fmt.Errorf("%w: csv output is only available for recommendations", shared.ErrInvalidArgument)
	}

	pipeline, err := r.pipeline(ctx, cmd)
	if err != nil {
		return err
	}

	progressCh, stop := r.watchProgress()
	report, err := pipeline.WithProgress(progressCh).Analyze(ctx, url)
	stop()
	if err != nil {
		return err
	}

	return r.emit(report, format, cmd.String("output"))
}

// Recommend fetches a playlist and prints tracks by its top artists.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	url, err := playlistURL(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	pipeline, err := r.pipeline(ctx, cmd)
	if err != nil {
		return err
	}

	progressCh, stop := r.watchProgress()
	report, err := pipeline.WithProgress(progressCh).Recommend(ctx, url, cmd.Int("count"))
	stop()
	if err != nil {
		return err
	}

	if len(report.SkippedArtists) > 0 {
		r.logger.Warn("some seed artists were skipped", "count", len(report.SkippedArtists))
	}
	return r.emit(report, format, cmd.String("output"))
}

// Validate checks whether a playlist URL can be fetched and is large enough for recommendations.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	url, err := playlistURL(cmd)
	if err != nil {
		return err
	}

	pipeline, err := r.pipeline(ctx, cmd)
	if err != nil {
		return err
	}

	result := pipeline.Validate(ctx, url)
	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writeBytes(formatter.ValidationToText(result, r.palette))
}

// emit renders report to stdout, or to path without terminal styling.
func (r *Runner) emit(report *models.Report, format formatter.Format, path string) error {
	palette := r.palette
	if path != "" {
		palette = formatter.PlainPalette()
	}

	data, err := formatter.Render(report, format, palette)
	if err != nil {
		return err
	}

	if path == "" {
		return r.writeBytes(data)
	}

	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.logger.Info("report saved", "path", path, "format", format)
	return r.writePlain("✓ Report saved to %s\n", path)
}
