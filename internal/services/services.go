// package services defines interfaces for the pipeline's external boundaries:
// the music catalog (Spotify) and the auth session store.
package services

import (
	"context"

	"songlift/internal/models"
)

// MusicService is the catalog a synced playlist is built against. The
// concrete implementation is [SpotifyService]; tests substitute doubles.
type MusicService interface {
	// AuthURL returns the user-consent URL for an authorization request
	// carrying the given state and PKCE code challenge.
	AuthURL(state, challenge string) string

	// Exchange redeems an authorization code, proving possession of the
	// verifier whose challenge was sent with the original request. The
	// returned session includes the authorized user's ID.
	Exchange(ctx context.Context, code, verifier string) (*models.AuthSession, error)

	// Authenticate installs a previously stored session for subsequent calls.
	Authenticate(session *models.AuthSession) error

	// SearchTrack searches for a track by title and artist.
	// A query with no match returns (nil, nil); only transport and API
	// failures are errors.
	SearchTrack(ctx context.Context, title, artist string) (*Track, error)

	// CreatePlaylist creates a new private playlist for the authorized user.
	CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error)

	// AddTracks adds track URIs to a playlist and returns how many were
	// accepted. Additions are best effort: a failed batch is skipped, not
	// fatal.
	AddTracks(ctx context.Context, playlistID string, uris []string) (int, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// SessionStore persists the auth session between runs and holds PKCE
// verifiers between the authorization request and the callback.
type SessionStore interface {
	// Get returns the stored session, or nil if none exists.
	Get() (*models.AuthSession, error)

	// Put stores a session, replacing any previous one atomically.
	Put(session *models.AuthSession) error

	// Clear removes the stored session.
	Clear() error

	// PutVerifier stores a PKCE verifier keyed by OAuth state.
	PutVerifier(state, verifier string) error

	// TakeVerifier retrieves and deletes the verifier for a state.
	// Each verifier can be taken exactly once.
	TakeVerifier(state string) (string, error)
}

// Track represents a catalog track matched from a search
type Track struct {
	ID     string
	Title  string
	Artist string
	URI    string
}

// Playlist represents a created playlist
type Playlist struct {
	ID     string
	Name   string
	WebURL string
}
