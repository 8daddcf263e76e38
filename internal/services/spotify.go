// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"songlift/internal/models"
	"songlift/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxTracksPerAdd is the API limit on URIs per playlist add call.
	maxTracksPerAdd = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type searchTracks struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

// SpotifySearchResponse represents the track portion of a search result.
type SpotifySearchResponse struct {
	Tracks searchTracks `json:"tracks"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

// SpotifyService implements the [MusicService] interface for Spotify API
// interactions. Authorization uses the PKCE flow, so no client secret is
// required and the service acts as a public OAuth client.
type SpotifyService struct {
	config     *oauth2.Config
	session    *models.AuthSession
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify service as a PKCE public client.
func NewSpotifyService(clientID, redirectURI string) (*SpotifyService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client_id is required: %w", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:8089/callback"
	}

	config := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes: []string{
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		logger:     shared.NewLogger(nil),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the user-consent URL carrying the state and S256 challenge.
func (s *SpotifyService) AuthURL(state, challenge string) string {
	return s.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
	)
}

// Exchange redeems an authorization code for a token, proving possession of
// the PKCE verifier, then resolves the authorized user's ID. The returned
// session is also installed on the service.
func (s *SpotifyService) Exchange(ctx context.Context, code, verifier string) (*models.AuthSession, error) {
	if code == "" || verifier == "" {
		return nil, fmt.Errorf("code and verifier are required: %w", shared.ErrInvalidInput)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	session := &models.AuthSession{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry.UnixMilli(),
	}
	s.session = session

	user, err := s.userProfile(ctx)
	if err != nil {
		s.session = nil
		return nil, fmt.Errorf("failed to resolve authorized user: %w", err)
	}
	session.UserID = user.ID

	return session, nil
}

// Authenticate installs a previously stored session for subsequent calls.
func (s *SpotifyService) Authenticate(session *models.AuthSession) error {
	if session == nil || session.AccessToken == "" {
		return fmt.Errorf("session with access token required: %w", shared.ErrNotAuthorized)
	}
	s.session = session
	return nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
// Expired sessions are rejected before the request is sent; a 401 from the
// API maps to the same error so callers handle both identically.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	if s.session == nil {
		return fmt.Errorf("call Authenticate or Exchange first: %w", shared.ErrNotAuthorized)
	}
	if !s.session.Valid(time.Now()) {
		return shared.ErrAuthExpired
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.session.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return shared.ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// userProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) userProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "GET", "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchTrack searches the catalog for the best match of a title and artist.
// No match is not an error; the caller skips unmatched songs.
func (s *SpotifyService) SearchTrack(ctx context.Context, title, artist string) (*Track, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", shared.ErrInvalidInput)
	}

	query := title
	if artist != "" {
		query += " " + artist
	}
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(query))

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
		if errors.Is(err, shared.ErrAuthExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrSearch, err)
	}

	if len(response.Tracks.Items) == 0 {
		return nil, nil
	}

	item := response.Tracks.Items[0]
	track := &Track{
		ID:    item.ID,
		Title: item.Name,
		URI:   item.URI,
	}
	if len(item.Artists) > 0 {
		track.Artist = item.Artists[0].Name
	}

	return track, nil
}

// CreatePlaylist creates a new private playlist for the authorized user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name is required: %w", shared.ErrInvalidInput)
	}

	body := createPlaylistRequest{
		Name:        name,
		Description: description,
		Public:      false,
	}

	var created SpotifyPlaylist
	if err := s.doRequest(ctx, "POST", "/me/playlists", body, &created); err != nil {
		if errors.Is(err, shared.ErrAuthExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistCreate, err)
	}

	webURL := created.ExternalURLs.Spotify
	if webURL == "" {
		webURL = "https://open.spotify.com/playlist/" + created.ID
	}

	return &Playlist{
		ID:     created.ID,
		Name:   created.Name,
		WebURL: webURL,
	}, nil
}

// AddTracks adds track URIs to a playlist in batches of up to 100 and returns
// how many were accepted. A failed batch is logged and skipped; the remaining
// batches are still attempted.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) (int, error) {
	if playlistID == "" {
		return 0, fmt.Errorf("playlist ID is required: %w", shared.ErrInvalidInput)
	}
	if len(uris) == 0 {
		return 0, nil
	}

	added := 0
	for start := 0; start < len(uris); start += maxTracksPerAdd {
		end := start + maxTracksPerAdd
		if end > len(uris) {
			end = len(uris)
		}
		batch := uris[start:end]

		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		if err := s.doRequest(ctx, "POST", endpoint, addTracksRequest{URIs: batch}, nil); err != nil {
			if errors.Is(err, shared.ErrAuthExpired) {
				return added, err
			}
			s.logger.Warn("failed to add batch to playlist",
				"playlist", playlistID, "batch_size", len(batch), "error", err)
			continue
		}

		added += len(batch)
	}

	return added, nil
}
