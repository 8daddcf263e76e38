package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"songlift/internal/models"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// TrackMatch records the catalog outcome for one classified song.
type TrackMatch struct {
	Song  models.ClassifiedSong `json:"song"`
	Track *services.Track       `json:"track,omitempty"`
	Err   string                `json:"error,omitempty"`
}

// PlaylistName derives the default playlist name for a profile.
func PlaylistName(profile string) string {
	return fmt.Sprintf("%s TikTok songs", profile)
}

// SyncSongs pushes an already-classified song set to a new playlist without
// running the scrape or classify stages. Titles the classifier could not
// identify are dropped; returns nil playlist when nothing remains.
func (p *Pipeline) SyncSongs(ctx context.Context, profile string, songs []models.ClassifiedSong, opts RunOptions, progress chan<- ProgressUpdate) (*models.PlaylistResult, []TrackMatch, error) {
	if profile == "" {
		return nil, nil, fmt.Errorf("profile is required: %w", shared.ErrMissingArgument)
	}

	real := models.RealSongs(songs)
	if len(real) == 0 {
		return nil, nil, nil
	}

	var session *models.AuthSession
	if p.sessions != nil {
		stored, err := p.sessions.Get()
		if err != nil {
			return nil, nil, err
		}
		session = stored
	}

	if !session.Valid(time.Now()) {
		if p.auth == nil {
			return nil, nil, fmt.Errorf("no stored session and no authorization flow: %w", shared.ErrNotAuthorized)
		}
		p.sendProgress(progress, awaitAuthUpdate())
		authed, err := p.auth.Authorize(ctx)
		if err != nil {
			return nil, nil, err
		}
		session = authed
	}

	return p.buildPlaylist(ctx, session, profile, real, opts, progress)
}

// buildPlaylist searches the catalog for each identified song, creates a
// private playlist, and adds the matched tracks. Searches are rate limited
// and individually best effort: an unmatched or failed search skips that
// song. Creation failure is fatal; a partially filled playlist is not.
func (p *Pipeline) buildPlaylist(ctx context.Context, session *models.AuthSession, profile string, songs []models.ClassifiedSong, opts RunOptions, progress chan<- ProgressUpdate) (*models.PlaylistResult, []TrackMatch, error) {
	if p.music == nil {
		return nil, nil, fmt.Errorf("no music service configured: %w", shared.ErrInvalidConfig)
	}
	if err := p.music.Authenticate(session); err != nil {
		return nil, nil, err
	}

	limiter := newSearchLimiter(opts.SearchInterval)

	matches := make([]TrackMatch, len(songs))
	var uris []string
	seen := make(map[string]bool)

	for i, song := range songs {
		if err := limiter.Wait(ctx); err != nil {
			return nil, matches, err
		}

		p.sendProgress(progress, searchTrackUpdate(i+1, len(songs), song))

		title := ""
		if song.Song != nil {
			title = *song.Song
		}
		artist := ""
		if song.Artist != nil {
			artist = *song.Artist
		}

		track, err := p.music.SearchTrack(ctx, title, artist)
		matches[i] = TrackMatch{Song: song, Track: track}

		if err != nil {
			if errors.Is(err, shared.ErrAuthExpired) {
				return nil, matches, err
			}
			matches[i].Err = err.Error()
			p.logger.Warn("search failed, skipping song", "title", title, "error", err)
			continue
		}
		if track == nil {
			continue
		}

		if !seen[track.URI] {
			seen[track.URI] = true
			uris = append(uris, track.URI)
		}
	}

	if len(uris) == 0 {
		p.logger.Info("no catalog matches, skipping playlist creation", "profile", profile)
		return nil, matches, nil
	}

	name := opts.PlaylistName
	if name == "" {
		name = PlaylistName(profile)
	}
	description := fmt.Sprintf("Songs from @%s on TikTok, collected %s", profile, time.Now().Format("2006-01-02"))

	playlist, err := p.music.CreatePlaylist(ctx, name, description)
	if err != nil {
		return nil, matches, err
	}
	p.sendProgress(progress, createPlaylistUpdate(playlist))

	added, err := p.music.AddTracks(ctx, playlist.ID, uris)
	if err != nil {
		return nil, matches, err
	}
	p.sendProgress(progress, addTracksUpdate(added, len(uris)))

	return &models.PlaylistResult{
		ExternalID:  playlist.ID,
		Name:        playlist.Name,
		WebURL:      playlist.WebURL,
		TracksAdded: added,
	}, matches, nil
}
