package tasks

import (
	"fmt"

	"songlift/internal/models"
	"songlift/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ScrapeProfile Phase = iota
	ScrapeVideos
	ClassifyTitles
	AwaitAuth
	SearchTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case ScrapeProfile:
		return "scrape_profile"
	case ScrapeVideos:
		return "scrape_videos"
	case ClassifyTitles:
		return "classify_titles"
	case AwaitAuth:
		return "await_auth"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func scrapeStartUpdate(profile string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScrapeProfile,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Opening profile @%s...", profile),
	}
}

func scrapeVideoUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScrapeVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Visiting videos...", step, total),
	}
}

func scrapeDoneUpdate(result *models.ScrapeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScrapeVideos,
		Step:    result.TotalVideosScraped,
		Total:   result.TotalVideosScraped,
		Message: fmt.Sprintf("Scraped %d videos, %d unique audio titles", result.TotalVideosScraped, len(result.UniqueTitles)),
		Data:    result,
	}
}

func classifyUpdate(titles int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClassifyTitles,
		Step:    0,
		Total:   titles,
		Message: fmt.Sprintf("Classifying %d audio titles...", titles),
	}
}

func classifyDoneUpdate(songs []models.ClassifiedSong) ProgressUpdate {
	real := models.CountRealSongs(songs)
	return ProgressUpdate{
		Phase:   ClassifyTitles,
		Step:    len(songs),
		Total:   len(songs),
		Message: fmt.Sprintf("Identified %d real songs out of %d titles", real, len(songs)),
		Data:    songs,
	}
}

func awaitAuthUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   AwaitAuth,
		Step:    0,
		Total:   1,
		Message: "Waiting for Spotify authorization...",
	}
}

func searchTrackUpdate(step, total int, song models.ClassifiedSong) ProgressUpdate {
	label := song.RawTitle
	if song.Song != nil {
		label = *song.Song
		if song.Artist != nil {
			label = fmt.Sprintf("%s - %s", *song.Song, *song.Artist)
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Searching: %s", step, total, label),
	}
}

func createPlaylistUpdate(playlist *services.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", playlist.Name, playlist.ID),
		Data:    playlist,
	}
}

func addTracksUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Added %d/%d tracks", added, total),
	}
}
