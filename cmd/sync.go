package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"songlift/internal/models"
	"songlift/internal/tasks"
)

// processedSongsFile mirrors the shape formatter writes to processed_songs.json.
type processedSongsFile struct {
	Profile string                  `json:"profile"`
	Songs   []models.ClassifiedSong `json:"songs"`
}

// Sync reads a processed_songs.json file and builds a Spotify playlist from
// the identified songs, running the authorization flow if needed.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	data, err := os.ReadFile(cmd.String("input"))
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var processed processedSongsFile
	if err := json.Unmarshal(data, &processed); err != nil {
		return fmt.Errorf("failed to parse input file: %w", err)
	}
	if processed.Profile == "" {
		return fmt.Errorf("input file has no profile field")
	}

	music, err := r.musicService()
	if err != nil {
		return err
	}
	store, err := r.sessionStore()
	if err != nil {
		return err
	}
	auth := tasks.NewInteractiveAuth(music, store, r.config.Credentials.Spotify.RedirectURI, r.logger)

	pipeline := tasks.NewPipeline(nil, nil, music, store, auth, nil, r.logger)

	opts := tasks.RunOptions{PlaylistName: cmd.String("playlist-name")}

	r.logger.Info("syncing songs", "profile", processed.Profile, "songs", models.CountRealSongs(processed.Songs))

	playlist, matches, err := pipeline.SyncSongs(ctx, processed.Profile, processed.Songs, opts, nil)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if playlist == nil {
		r.writePlain("No songs matched, playlist not created\n")
		return nil
	}

	matched := 0
	for _, match := range matches {
		if match.Track != nil {
			matched++
		}
	}

	r.writePlain("Playlist: %s (%d tracks)\n", playlist.Name, playlist.TracksAdded)
	r.writePlain("Matched %d of %d songs\n", matched, len(matches))
	if playlist.WebURL != "" {
		r.writePlain("%s\n", playlist.WebURL)
	}
	return nil
}
