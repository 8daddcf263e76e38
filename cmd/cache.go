package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"songlift/internal/server"
)

// CacheShow prints the most recent cached scrape for a profile.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	profile, err := server.NormalizeUsername(cmd.StringArg("profile"))
	if err != nil {
		return err
	}

	cache, err := r.scrapeCache()
	if err != nil {
		return err
	}

	result, err := cache.Latest(profile)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if result == nil {
		r.writePlain("No cached scrape for @%s\n", profile)
		return nil
	}

	return r.writeJSON(result, cmd.Bool("pretty"))
}

// CachePrune deletes cached scrapes older than --max-age.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	cache, err := r.scrapeCache()
	if err != nil {
		return err
	}

	maxAge := cmd.Duration("max-age")
	removed, err := cache.Prune(maxAge)
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	r.writePlain("Removed %d cached scrapes older than %s\n", removed, maxAge)
	return nil
}
