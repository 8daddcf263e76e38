package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// newTestService creates a SpotifyService pointed at a test server with a
// valid session installed.
func newTestService(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService("test_client_id", "http://localhost:8089/callback")
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.baseURL = server.URL
	srv.config.Endpoint.TokenURL = server.URL + "/api/token"

	session := &models.AuthSession{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
		UserID:      "user123",
	}
	if err := srv.Authenticate(session); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}

	return srv, server
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("With Valid Client ID", func(t *testing.T) {
		srv, err := NewSpotifyService("test_client_id", "http://localhost:9999/cb")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if srv.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", srv.Name())
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		if _, err := NewSpotifyService("", ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Default Redirect URI", func(t *testing.T) {
		srv, err := NewSpotifyService("test_client_id", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if srv.config.RedirectURL == "" {
			t.Error("expected a default redirect URI")
		}
	})
}

func TestAuthURL(t *testing.T) {
	srv, err := NewSpotifyService("test_client_id", "http://localhost:8089/callback")
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	authURL := srv.AuthURL("state-abc", "challenge-xyz")

	for _, want := range []string{
		"client_id=test_client_id",
		"state=state-abc",
		"code_challenge=challenge-xyz",
		"code_challenge_method=S256",
		"response_type=code",
	} {
		if !strings.Contains(authURL, want) {
			t.Errorf("auth URL missing %q: %s", want, authURL)
		}
	}

	if strings.Contains(authURL, "client_secret") {
		t.Error("public client auth URL must not carry a client secret")
	}
}

func TestExchange(t *testing.T) {
	t.Run("Successful Exchange", func(t *testing.T) {
		var gotVerifier string

		mux := http.NewServeMux()
		mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse token form: %v", err)
			}
			gotVerifier = r.FormValue("code_verifier")
			if r.FormValue("grant_type") != "authorization_code" {
				t.Errorf("unexpected grant_type %q", r.FormValue("grant_type"))
			}
			if r.FormValue("code") != "auth-code" {
				t.Errorf("unexpected code %q", r.FormValue("code"))
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`)
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer fresh-token" {
				t.Errorf("profile request used wrong token: %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"user123","display_name":"Test User"}`)
		})

		srv, _ := newTestService(t, mux)
		srv.session = nil

		session, err := srv.Exchange(context.Background(), "auth-code", "the-verifier")
		if err != nil {
			t.Fatalf("exchange failed: %v", err)
		}

		if gotVerifier != "the-verifier" {
			t.Errorf("expected verifier to be forwarded, got %q", gotVerifier)
		}
		if session.AccessToken != "fresh-token" {
			t.Errorf("unexpected token %q", session.AccessToken)
		}
		if session.UserID != "user123" {
			t.Errorf("unexpected user %q", session.UserID)
		}
		if !session.Valid(time.Now()) {
			t.Error("freshly exchanged session should be valid")
		}
	})

	t.Run("Missing Code Or Verifier", func(t *testing.T) {
		srv, _ := NewSpotifyService("test_client_id", "")

		if _, err := srv.Exchange(context.Background(), "", "v"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing code, got %v", err)
		}
		if _, err := srv.Exchange(context.Background(), "c", ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing verifier, got %v", err)
		}
	})

	t.Run("Token Server Rejects Code", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		})

		srv, _ := newTestService(t, mux)
		srv.session = nil

		if _, err := srv.Exchange(context.Background(), "bad-code", "verifier"); err == nil {
			t.Error("expected error for rejected code")
		}
		if srv.session != nil {
			t.Error("failed exchange must not leave a session installed")
		}
	})
}

func TestAuthenticate(t *testing.T) {
	srv, _ := NewSpotifyService("test_client_id", "")

	if err := srv.Authenticate(nil); !errors.Is(err, shared.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for nil session, got %v", err)
	}
	if err := srv.Authenticate(&models.AuthSession{}); !errors.Is(err, shared.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for empty token, got %v", err)
	}
}

func TestDoRequest(t *testing.T) {
	t.Run("Without Session", func(t *testing.T) {
		srv, _ := NewSpotifyService("test_client_id", "")

		err := srv.doRequest(context.Background(), "GET", "/me", nil, nil)
		if !errors.Is(err, shared.ErrNotAuthorized) {
			t.Errorf("expected ErrNotAuthorized, got %v", err)
		}
	})

	t.Run("Expired Session", func(t *testing.T) {
		srv, _ := NewSpotifyService("test_client_id", "")
		srv.session = &models.AuthSession{
			AccessToken: "stale",
			ExpiresAt:   time.Now().Add(-time.Minute).UnixMilli(),
			UserID:      "user123",
		}

		err := srv.doRequest(context.Background(), "GET", "/me", nil, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired without a network call, got %v", err)
		}
	})

	t.Run("Unauthorized Response", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		err := srv.doRequest(context.Background(), "GET", "/me", nil, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired for 401, got %v", err)
		}
	})
}

func TestSearchTrack(t *testing.T) {
	t.Run("Match Found", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q.Get("q"); got != "Flowers Miley Cyrus" {
				t.Errorf("unexpected query %q", got)
			}
			if q.Get("type") != "track" || q.Get("limit") != "1" {
				t.Errorf("unexpected search params: %v", q)
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"tracks":{"items":[{"id":"t1","name":"Flowers","uri":"spotify:track:t1","artists":[{"id":"a1","name":"Miley Cyrus"}]}],"total":1}}`)
		}))

		track, err := srv.SearchTrack(context.Background(), "Flowers", "Miley Cyrus")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if track == nil {
			t.Fatal("expected a match")
		}
		if track.URI != "spotify:track:t1" {
			t.Errorf("unexpected URI %q", track.URI)
		}
		if track.Artist != "Miley Cyrus" {
			t.Errorf("unexpected artist %q", track.Artist)
		}
	})

	t.Run("No Match Is Not An Error", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"tracks":{"items":[],"total":0}}`)
		}))

		track, err := srv.SearchTrack(context.Background(), "Unknown Song", "Nobody")
		if err != nil {
			t.Fatalf("expected no error for empty result, got %v", err)
		}
		if track != nil {
			t.Errorf("expected nil track, got %+v", track)
		}
	})

	t.Run("API Failure", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := srv.SearchTrack(context.Background(), "Song", "Artist")
		if !errors.Is(err, shared.ErrSearch) {
			t.Errorf("expected ErrSearch, got %v", err)
		}
	})

	t.Run("Expired Session Passes Through", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := srv.SearchTrack(context.Background(), "Song", "Artist")
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})
}

func TestCreatePlaylist(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}

			var req createPlaylistRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if req.Name != "someuser TikTok songs" {
				t.Errorf("unexpected name %q", req.Name)
			}
			if req.Public {
				t.Error("playlist should be private")
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"pl1","name":"someuser TikTok songs","external_urls":{"spotify":"https://open.spotify.com/playlist/pl1"}}`)
		}))

		playlist, err := srv.CreatePlaylist(context.Background(), "someuser TikTok songs", "Songs from TikTok")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if playlist.ID != "pl1" {
			t.Errorf("unexpected ID %q", playlist.ID)
		}
		if playlist.WebURL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("unexpected URL %q", playlist.WebURL)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))

		_, err := srv.CreatePlaylist(context.Background(), "name", "")
		if !errors.Is(err, shared.ErrPlaylistCreate) {
			t.Errorf("expected ErrPlaylistCreate, got %v", err)
		}
	})
}

func TestAddTracks(t *testing.T) {
	makeURIs := func(n int) []string {
		uris := make([]string, n)
		for i := range uris {
			uris[i] = fmt.Sprintf("spotify:track:%d", i)
		}
		return uris
	}

	t.Run("Batches Of One Hundred", func(t *testing.T) {
		var batchSizes []int

		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req addTracksRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			batchSizes = append(batchSizes, len(req.URIs))
			w.WriteHeader(http.StatusCreated)
		}))

		added, err := srv.AddTracks(context.Background(), "pl1", makeURIs(250))
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if added != 250 {
			t.Errorf("expected 250 added, got %d", added)
		}
		if len(batchSizes) != 3 || batchSizes[0] != 100 || batchSizes[1] != 100 || batchSizes[2] != 50 {
			t.Errorf("unexpected batch sizes: %v", batchSizes)
		}
	})

	t.Run("Failed Batch Is Skipped", func(t *testing.T) {
		var calls int

		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

		added, err := srv.AddTracks(context.Background(), "pl1", makeURIs(250))
		if err != nil {
			t.Fatalf("best-effort add should not fail: %v", err)
		}
		if added != 150 {
			t.Errorf("expected 150 added after one failed batch, got %d", added)
		}
		if calls != 3 {
			t.Errorf("expected all 3 batches attempted, got %d", calls)
		}
	})

	t.Run("Expired Token Stops The Run", func(t *testing.T) {
		var calls int

		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 2 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

		added, err := srv.AddTracks(context.Background(), "pl1", makeURIs(250))
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Fatalf("expected ErrAuthExpired, got %v", err)
		}
		if added != 100 {
			t.Errorf("expected 100 added before expiry, got %d", added)
		}
		if calls != 2 {
			t.Errorf("expected the run to stop at the expired batch, got %d calls", calls)
		}
	})

	t.Run("Empty Input", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should be made for empty input")
		}))

		added, err := srv.AddTracks(context.Background(), "pl1", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if added != 0 {
			t.Errorf("expected 0 added, got %d", added)
		}
	})
}
