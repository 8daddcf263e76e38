// package models defines the data model for the songlift pipeline
package models

import (
	"fmt"
	"time"
)

// SongKind classifies how an audio title relates to a released song.
type SongKind string

const (
	KindOriginal SongKind = "original"
	KindRemix    SongKind = "remix"
	KindCover    SongKind = "cover"
	KindMashup   SongKind = "mashup"
	KindUnknown  SongKind = "unknown"
)

var songKinds = map[SongKind]struct{}{
	KindOriginal: {},
	KindRemix:    {},
	KindCover:    {},
	KindMashup:   {},
	KindUnknown:  {},
}

// Valid reports whether k is a known song kind.
func (k SongKind) Valid() bool {
	_, ok := songKinds[k]
	return ok
}

// ParseSongKind maps an arbitrary string to a [SongKind], defaulting to
// [KindUnknown] for anything unrecognized.
func ParseSongKind(s string) SongKind {
	k := SongKind(s)
	if k.Valid() {
		return k
	}
	return KindUnknown
}

// Confidence is the classifier's self-reported certainty for one title.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

var confidences = map[Confidence]struct{}{
	ConfidenceHigh:    {},
	ConfidenceMedium:  {},
	ConfidenceLow:     {},
	ConfidenceUnknown: {},
}

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	_, ok := confidences[c]
	return ok
}

// ParseConfidence maps an arbitrary string to a [Confidence], defaulting
// to [ConfidenceUnknown].
func ParseConfidence(s string) Confidence {
	c := Confidence(s)
	if c.Valid() {
		return c
	}
	return ConfidenceUnknown
}

// ScrapeResult is the output of a profile scrape.
//
// UniqueTitles keeps first-occurrence order and contains no duplicates;
// its length never exceeds TotalVideosScraped (videos whose title could
// not be extracted are counted but contribute no title).
type ScrapeResult struct {
	Profile            string   `json:"profile"`
	TotalVideosScraped int      `json:"total_videos_scraped"`
	UniqueTitles       []string `json:"unique_titles"`
}

// Validate checks the scrape invariants: non-negative video count, no
// duplicate titles, and len(UniqueTitles) <= TotalVideosScraped.
func (r *ScrapeResult) Validate() error {
	if r.TotalVideosScraped < 0 {
		return fmt.Errorf("negative video count: %d", r.TotalVideosScraped)
	}
	if len(r.UniqueTitles) > r.TotalVideosScraped {
		return fmt.Errorf("%d unique titles from %d videos", len(r.UniqueTitles), r.TotalVideosScraped)
	}
	seen := make(map[string]struct{}, len(r.UniqueTitles))
	for _, title := range r.UniqueTitles {
		if _, dup := seen[title]; dup {
			return fmt.Errorf("duplicate title: %q", title)
		}
		seen[title] = struct{}{}
	}
	return nil
}

// ClassifiedSong is the classifier's verdict for a single raw title.
//
// Song is nil iff the audio was judged not to be a commercially released
// song (user original sounds, unidentifiable clips, failed batches).
type ClassifiedSong struct {
	RawTitle   string     `json:"tiktok_title"`
	Song       *string    `json:"song"`
	Artist     *string    `json:"artist"`
	Kind       SongKind   `json:"type"`
	Confidence Confidence `json:"confidence"`
}

// IsRealSong reports whether the classifier identified a released song.
func (s ClassifiedSong) IsRealSong() bool {
	return s.Song != nil && *s.Song != ""
}

// FallbackSong is the deterministic record a title receives when its
// batch could not be classified. Keeps the one-to-one output invariant.
func FallbackSong(rawTitle string) ClassifiedSong {
	return ClassifiedSong{
		RawTitle:   rawTitle,
		Song:       nil,
		Artist:     nil,
		Kind:       KindUnknown,
		Confidence: ConfidenceUnknown,
	}
}

// CountRealSongs returns how many entries identify a released song.
func CountRealSongs(songs []ClassifiedSong) int {
	count := 0
	for _, s := range songs {
		if s.IsRealSong() {
			count++
		}
	}
	return count
}

// RealSongs filters the classified set down to identified songs,
// preserving order.
func RealSongs(songs []ClassifiedSong) []ClassifiedSong {
	real := make([]ClassifiedSong, 0, len(songs))
	for _, s := range songs {
		if s.IsRealSong() {
			real = append(real, s)
		}
	}
	return real
}

// AuthSession is the stored Spotify authorization state.
//
// Owned exclusively by the session store; written only by the PKCE
// exchange. ExpiresAt is epoch milliseconds.
type AuthSession struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	UserID      string `json:"user_id"`
}

// Valid reports whether the session is usable at the given instant.
// Expiry is exclusive: a session whose expiry equals now is invalid.
func (s *AuthSession) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return now.UnixMilli() < s.ExpiresAt
}

// PlaylistResult records a completed sync. Created once per successful
// sync invocation and immutable afterward.
type PlaylistResult struct {
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	WebURL      string `json:"web_url"`
	TracksAdded int    `json:"tracks_added"`
}
