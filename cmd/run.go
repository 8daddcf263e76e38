package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"songlift/internal/formatter"
	"songlift/internal/models"
	"songlift/internal/server"
	"songlift/internal/services"
	"songlift/internal/shared"
	"songlift/internal/tasks"
	"songlift/internal/ui"
)

// Run executes the full pipeline: scrape, classify, and unless --sync=false,
// authorize and build the playlist.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	profile, err := server.NormalizeUsername(cmd.StringArg("profile"))
	if err != nil {
		return err
	}

	pipeline, err := r.buildPipeline(!cmd.Bool("sync"))
	if err != nil {
		return err
	}

	opts := tasks.RunOptions{
		SkipSync:     !cmd.Bool("sync"),
		UseCache:     cmd.Bool("cached"),
		PlaylistName: cmd.String("playlist-name"),
	}

	var result *tasks.PipelineResult
	if cmd.Bool("ui") {
		result, err = r.runWithUI(ctx, pipeline, profile, opts)
	} else {
		result, err = r.runWithLogs(ctx, pipeline, profile, opts)
	}
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if dir := cmd.String("save"); dir != "" && result.Scrape != nil {
		if _, err := formatter.WriteExports(dir, result.Scrape, result.Songs); err != nil {
			r.logger.Warn("failed to write exports", "error", err)
		} else {
			r.writePlain("Exports written to %s\n", dir)
		}
	}

	return r.printRunSummary(result)
}

// buildPipeline assembles the pipeline stages. The sync stage's dependencies
// are skipped when the run will not reach it.
func (r *Runner) buildPipeline(skipSync bool) (*tasks.Pipeline, error) {
	engine, err := r.newScraper()
	if err != nil {
		return nil, err
	}

	c, err := r.newClassifier()
	if err != nil {
		return nil, err
	}

	var music services.MusicService
	var store services.SessionStore
	var auth tasks.AuthFlow

	if !skipSync {
		if music, err = r.musicService(); err != nil {
			return nil, err
		}
		if store, err = r.sessionStore(); err != nil {
			return nil, err
		}
		auth = tasks.NewInteractiveAuth(music, store, r.config.Credentials.Spotify.RedirectURI, r.logger)
	}

	return tasks.NewPipeline(engine, c, music, store, auth, r.optionalScrapeCache(), r.logger), nil
}

// optionalScrapeCache returns the scrape cache, or an untyped nil when the
// database is unavailable so the pipeline runs uncached. The nil must be the
// interface's own, never a typed repository pointer.
func (r *Runner) optionalScrapeCache() tasks.ScrapeCache {
	repo, err := r.scrapeCache()
	if err != nil {
		r.logger.Warn("scrape cache unavailable", "error", err)
		return nil
	}
	return repo
}

// runWithLogs streams progress messages through the logger.
func (r *Runner) runWithLogs(ctx context.Context, pipeline *tasks.Pipeline, profile string, opts tasks.RunOptions) (*tasks.PipelineResult, error) {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
		close(done)
	}()

	result, err := pipeline.Run(ctx, profile, opts, progress)
	close(progress)
	<-done

	return result, err
}

// runWithUI renders progress in a bubbletea display. Logs move to a file so
// they do not fight the TUI for the terminal.
func (r *Runner) runWithUI(ctx context.Context, pipeline *tasks.Pipeline, profile string, opts tasks.RunOptions) (*tasks.PipelineResult, error) {
	fileLogger, err := shared.NewFileLogger("./tmp/songlift-tui.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var result *tasks.PipelineResult
	var runErr error

	model := ui.NewModel(ctx, profile, func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.PipelineResult, error) {
		result, runErr = pipeline.Run(ctx, profile, opts, progress)
		return result, runErr
	})

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("error running progress display: %w", err)
	}

	return result, runErr
}

// printRunSummary writes the human-readable outcome of a pipeline run.
func (r *Runner) printRunSummary(result *tasks.PipelineResult) error {
	if result.Scrape != nil {
		r.writePlain("Scraped %d videos, %d unique titles\n", result.Scrape.TotalVideosScraped, len(result.Scrape.UniqueTitles))
	}
	if result.Songs != nil {
		r.writePlain("Identified %d songs\n", models.CountRealSongs(result.Songs))
	}
	if result.Playlist != nil {
		r.writePlain("Playlist: %s (%d tracks)\n", result.Playlist.Name, result.Playlist.TracksAdded)
		if result.Playlist.WebURL != "" {
			r.writePlain("%s\n", result.Playlist.WebURL)
		}
	}
	return nil
}
