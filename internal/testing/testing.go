// package testing contains shared testing utilities and doubles for the
// pipeline's external boundaries.
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"songlift/internal/models"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// MockMusicService is a configurable test double for [services.MusicService].
// Zero value behavior: every search matches a synthetic track, playlist
// creation succeeds, and all adds are accepted.
type MockMusicService struct {
	mu sync.Mutex

	AuthURLFunc    func(state, challenge string) string
	ExchangeFunc   func(ctx context.Context, code, verifier string) (*models.AuthSession, error)
	SearchFunc     func(ctx context.Context, title, artist string) (*services.Track, error)
	CreateFunc     func(ctx context.Context, name, description string) (*services.Playlist, error)
	AddTracksFunc  func(ctx context.Context, playlistID string, uris []string) (int, error)
	AuthenticateFn func(session *models.AuthSession) error

	Session       *models.AuthSession
	SearchCalls   int
	CreateCalls   int
	AddCalls      int
	AddedURIs     []string
	CreatedName   string
	SearchQueries [][2]string
}

func (m *MockMusicService) Name() string { return "mock" }

func (m *MockMusicService) AuthURL(state, challenge string) string {
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state, challenge)
	}
	return fmt.Sprintf("https://auth.example.com/authorize?state=%s&code_challenge=%s", state, challenge)
}

func (m *MockMusicService) Exchange(ctx context.Context, code, verifier string) (*models.AuthSession, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code, verifier)
	}
	return &models.AuthSession{AccessToken: "mock-token", ExpiresAt: 1<<62 - 1, UserID: "mock-user"}, nil
}

func (m *MockMusicService) Authenticate(session *models.AuthSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(session)
	}
	m.Session = session
	return nil
}

func (m *MockMusicService) SearchTrack(ctx context.Context, title, artist string) (*services.Track, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.SearchQueries = append(m.SearchQueries, [2]string{title, artist})
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, title, artist)
	}
	return &services.Track{
		ID:     "id-" + title,
		Title:  title,
		Artist: artist,
		URI:    "spotify:track:" + title,
	}, nil
}

func (m *MockMusicService) CreatePlaylist(ctx context.Context, name, description string) (*services.Playlist, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.CreatedName = name
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, description)
	}
	return &services.Playlist{ID: "mock-playlist", Name: name, WebURL: "https://open.spotify.com/playlist/mock-playlist"}, nil
}

func (m *MockMusicService) AddTracks(ctx context.Context, playlistID string, uris []string) (int, error) {
	m.mu.Lock()
	m.AddCalls++
	m.AddedURIs = append(m.AddedURIs, uris...)
	m.mu.Unlock()

	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, playlistID, uris)
	}
	return len(uris), nil
}

// MemorySessionStore is an in-memory [services.SessionStore].
type MemorySessionStore struct {
	mu        sync.Mutex
	session   *models.AuthSession
	verifiers map[string]string

	PutErr error
	GetErr error
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{verifiers: make(map[string]string)}
}

func (s *MemorySessionStore) Get() (*models.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.session, nil
}

func (s *MemorySessionStore) Put(session *models.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.session = session
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func (s *MemorySessionStore) PutVerifier(state, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiers[state] = verifier
	return nil
}

func (s *MemorySessionStore) TakeVerifier(state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	verifier, ok := s.verifiers[state]
	if !ok {
		return "", shared.ErrNoVerifier
	}
	delete(s.verifiers, state)
	return verifier, nil
}

// StubScraper returns a fixed scrape result or error.
type StubScraper struct {
	Result *models.ScrapeResult
	Err    error
	Calls  int
}

func (s *StubScraper) ScrapeProfile(ctx context.Context, profile string, onProgress func(stage string, current, total int)) (*models.ScrapeResult, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if onProgress != nil && s.Result != nil {
		onProgress("videos", s.Result.TotalVideosScraped, s.Result.TotalVideosScraped)
	}
	return s.Result, s.Err
}

// StubClassifier classifies every title as a real original song named after
// the title, or returns Err.
type StubClassifier struct {
	Err   error
	Calls int
}

func (s *StubClassifier) Classify(ctx context.Context, titles []string) ([]models.ClassifiedSong, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]models.ClassifiedSong, len(titles))
	for i, title := range titles {
		name := title
		artist := "Artist"
		out[i] = models.ClassifiedSong{
			RawTitle:   title,
			Song:       &name,
			Artist:     &artist,
			Kind:       models.KindOriginal,
			Confidence: models.ConfidenceHigh,
		}
	}
	return out, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
