package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"songlift/internal/formatter"
	"songlift/internal/models"
	"songlift/internal/server"
	"songlift/internal/shared"
)

// rawTitlesFile mirrors the shape formatter writes to raw_songs.json.
type rawTitlesFile struct {
	Profile            string   `json:"profile"`
	TotalVideosScraped int      `json:"total_videos_scraped"`
	RawTitles          []string `json:"raw_titles"`
}

// Classify runs AI classification over titles from a raw_songs.json file or
// the most recent cached scrape.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	scrape, err := r.loadScrapeInput(cmd)
	if err != nil {
		return err
	}

	if len(scrape.UniqueTitles) == 0 {
		r.writePlain("No titles to classify\n")
		return nil
	}

	songs, err := r.classifyTitles(ctx, scrape.UniqueTitles)
	if err != nil {
		return err
	}

	real := models.CountRealSongs(songs)
	r.logger.Info("classification complete", "titles", len(songs), "identified", real)

	if dir := cmd.String("save"); dir != "" {
		exports, err := formatter.WriteExports(dir, scrape, songs)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s and %s\n", exports.ProcessedFile, exports.SongsFile)
	}

	if path := cmd.String("csv"); path != "" {
		written, err := formatter.WriteCSVExport(scrape.Profile, songs, path)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s\n", written)
	}

	return r.writeJSON(songs, cmd.Bool("pretty"))
}

// classifyTitles builds the classifier and runs it over the titles.
func (r *Runner) classifyTitles(ctx context.Context, titles []string) ([]models.ClassifiedSong, error) {
	c, err := r.newClassifier()
	if err != nil {
		return nil, err
	}

	r.logger.Info("classifying titles", "count", len(titles))
	return c.Classify(ctx, titles)
}

// loadScrapeInput resolves the classification input: an explicit file, or
// the cached scrape for --profile.
func (r *Runner) loadScrapeInput(cmd *cli.Command) (*models.ScrapeResult, error) {
	if path := cmd.String("input"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}

		var raw rawTitlesFile
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		return &models.ScrapeResult{
			Profile:            raw.Profile,
			TotalVideosScraped: raw.TotalVideosScraped,
			UniqueTitles:       raw.RawTitles,
		}, nil
	}

	profile, err := server.NormalizeUsername(cmd.String("profile"))
	if err != nil {
		return nil, fmt.Errorf("%w: --input or --profile is required", shared.ErrMissingArgument)
	}

	cache, err := r.scrapeCache()
	if err != nil {
		return nil, err
	}

	scrape, err := cache.Latest(profile)
	if err != nil {
		return nil, err
	}
	if scrape == nil {
		return nil, fmt.Errorf("no cached scrape for @%s, run 'songlift scrape %s' first", profile, profile)
	}

	return scrape, nil
}
