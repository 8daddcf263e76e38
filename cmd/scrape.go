package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"songlift/internal/formatter"
	"songlift/internal/server"
)

// Scrape collects audio titles from a profile's video feed and caches the
// result for later classification.
func (r *Runner) Scrape(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	profile, err := server.NormalizeUsername(cmd.StringArg("profile"))
	if err != nil {
		return err
	}

	if n := cmd.Int("max-videos"); n > 0 {
		r.config.Scraper.MaxVideos = int(n)
	}

	engine, err := r.newScraper()
	if err != nil {
		return err
	}

	r.logger.Info("scraping profile", "profile", profile, "max_videos", r.config.Scraper.MaxVideos)

	result, err := engine.ScrapeProfile(ctx, profile, func(stage string, current, total int) {
		r.logger.Info("scrape progress", "stage", stage, "current", current, "total", total)
	})
	if err != nil {
		return fmt.Errorf("failed to scrape @%s: %w", profile, err)
	}

	if cache, err := r.scrapeCache(); err != nil {
		r.logger.Warn("scrape cache unavailable", "error", err)
	} else if _, err := cache.Save(result); err != nil {
		r.logger.Warn("failed to cache scrape result", "error", err)
	}

	if dir := cmd.String("save"); dir != "" {
		exports, err := formatter.WriteExports(dir, result, nil)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %s\n", exports.RawFile)
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}
