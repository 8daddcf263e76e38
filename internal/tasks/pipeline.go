// package tasks orchestrates the scrape, classify, and sync stages as a
// single pipeline with an explicit state machine.
//
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"songlift/internal/models"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// Status is the pipeline's lifecycle state.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusScraping     Status = "scraping"
	StatusClassifying  Status = "classifying"
	StatusAwaitingAuth Status = "awaiting_auth"
	StatusSyncing      Status = "syncing"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// validTransitions encodes the allowed state machine edges. awaiting_auth is
// skipped when a stored session is still valid. done and failed have no
// outgoing edges; a new run takes a fresh Pipeline.
var validTransitions = map[Status][]Status{
	StatusIdle:         {StatusScraping},
	StatusScraping:     {StatusClassifying, StatusFailed},
	StatusClassifying:  {StatusAwaitingAuth, StatusSyncing, StatusDone, StatusFailed},
	StatusAwaitingAuth: {StatusSyncing, StatusFailed},
	StatusSyncing:      {StatusDone, StatusFailed},
}

// CanTransition reports whether the edge from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ProfileScraper collects audio titles from a profile's videos.
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, profile string, onProgress func(stage string, current, total int)) (*models.ScrapeResult, error)
}

// SongClassifier maps titles to classified song records one-to-one.
type SongClassifier interface {
	Classify(ctx context.Context, titles []string) ([]models.ClassifiedSong, error)
}

// AuthFlow obtains a valid session interactively when none is stored.
type AuthFlow interface {
	Authorize(ctx context.Context) (*models.AuthSession, error)
}

// ScrapeCache stores scrape results between runs.
type ScrapeCache interface {
	Save(result *models.ScrapeResult) (string, error)
	Latest(profile string) (*models.ScrapeResult, error)
}

// PipelineResult carries everything a run produced. Playlist is nil when the
// sync stage was skipped or nothing matched.
type PipelineResult struct {
	Scrape   *models.ScrapeResult    `json:"scrape"`
	Songs    []models.ClassifiedSong `json:"songs"`
	Playlist *models.PlaylistResult  `json:"playlist,omitempty"`
	Matches  []TrackMatch            `json:"matches,omitempty"`
	Status   Status                  `json:"status"`
}

// RunOptions tune a pipeline run.
type RunOptions struct {
	// SkipSync stops after classification.
	SkipSync bool
	// UseCache reuses the most recent scrape of the profile when present.
	UseCache bool
	// PlaylistName overrides the default "<profile> TikTok songs".
	PlaylistName string
	// SearchInterval is the minimum spacing between catalog searches.
	// Zero means the default of 250ms.
	SearchInterval time.Duration
}

// Pipeline wires the stages together and tracks the run's status.
type Pipeline struct {
	scraper    ProfileScraper
	classifier SongClassifier
	music      services.MusicService
	sessions   services.SessionStore
	auth       AuthFlow
	cache      ScrapeCache
	logger     *log.Logger

	mu     sync.Mutex
	status Status
}

// NewPipeline creates a pipeline. auth and cache may be nil: without auth a
// missing session fails the sync stage, and without cache every run scrapes.
func NewPipeline(scraper ProfileScraper, classifier SongClassifier, music services.MusicService, sessions services.SessionStore, auth AuthFlow, cache ScrapeCache, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		scraper:    scraper,
		classifier: classifier,
		music:      music,
		sessions:   sessions,
		auth:       auth,
		cache:      cache,
		logger:     logger,
		status:     StatusIdle,
	}
}

// Status returns the pipeline's current state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// transition moves the pipeline to next, enforcing the state machine.
func (p *Pipeline) transition(next Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.status.CanTransition(next) {
		return fmt.Errorf("invalid transition %s -> %s: %w", p.status, next, shared.ErrInvalidArgument)
	}

	p.logger.Debug("pipeline transition", "from", p.status, "to", next)
	p.status = next
	return nil
}

// fail records the failure state and returns the original error.
func (p *Pipeline) fail(err error) error {
	p.mu.Lock()
	p.status = StatusFailed
	p.mu.Unlock()
	return err
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes scrape -> classify -> (authorize) -> sync for one profile.
// The returned result is non-nil for every completed stage even when a later
// stage fails.
func (p *Pipeline) Run(ctx context.Context, profile string, opts RunOptions, progress chan<- ProgressUpdate) (*PipelineResult, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is required: %w", shared.ErrMissingArgument)
	}
	if p.scraper == nil || p.classifier == nil {
		return nil, fmt.Errorf("pipeline missing scrape or classify stage: %w", shared.ErrInvalidConfig)
	}

	result := &PipelineResult{}

	scrape, err := p.runScrape(ctx, profile, opts, progress)
	if err != nil {
		result.Status = StatusFailed
		return result, p.fail(err)
	}
	result.Scrape = scrape

	songs, err := p.runClassify(ctx, scrape, progress)
	if err != nil {
		result.Status = StatusFailed
		return result, p.fail(err)
	}
	result.Songs = songs

	if opts.SkipSync {
		if err := p.transition(StatusDone); err != nil {
			return result, p.fail(err)
		}
		result.Status = StatusDone
		return result, nil
	}

	realSongs := models.RealSongs(songs)
	if len(realSongs) == 0 {
		p.logger.Info("no real songs identified, skipping sync", "profile", profile)
		if err := p.transition(StatusDone); err != nil {
			return result, p.fail(err)
		}
		result.Status = StatusDone
		return result, nil
	}

	session, err := p.ensureSession(ctx, progress)
	if err != nil {
		result.Status = StatusFailed
		return result, p.fail(err)
	}

	if err := p.transition(StatusSyncing); err != nil {
		return result, p.fail(err)
	}

	playlist, matches, err := p.buildPlaylist(ctx, session, profile, realSongs, opts, progress)
	if err != nil {
		result.Status = StatusFailed
		return result, p.fail(err)
	}
	result.Playlist = playlist
	result.Matches = matches

	if err := p.transition(StatusDone); err != nil {
		return result, p.fail(err)
	}
	result.Status = StatusDone
	return result, nil
}

func (p *Pipeline) runScrape(ctx context.Context, profile string, opts RunOptions, progress chan<- ProgressUpdate) (*models.ScrapeResult, error) {
	if err := p.transition(StatusScraping); err != nil {
		return nil, err
	}

	if opts.UseCache && p.cache != nil {
		cached, err := p.cache.Latest(profile)
		if err != nil {
			p.logger.Warn("scrape cache lookup failed", "profile", profile, "error", err)
		} else if cached != nil {
			p.logger.Info("using cached scrape", "profile", profile, "titles", len(cached.UniqueTitles))
			p.sendProgress(progress, scrapeDoneUpdate(cached))
			return cached, nil
		}
	}

	p.sendProgress(progress, scrapeStartUpdate(profile))

	scrape, err := p.scraper.ScrapeProfile(ctx, profile, func(stage string, current, total int) {
		p.sendProgress(progress, scrapeVideoUpdate(current, total))
	})
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if _, err := p.cache.Save(scrape); err != nil {
			p.logger.Warn("failed to cache scrape result", "profile", profile, "error", err)
		}
	}

	p.sendProgress(progress, scrapeDoneUpdate(scrape))
	return scrape, nil
}

func (p *Pipeline) runClassify(ctx context.Context, scrape *models.ScrapeResult, progress chan<- ProgressUpdate) ([]models.ClassifiedSong, error) {
	if err := p.transition(StatusClassifying); err != nil {
		return nil, err
	}

	p.sendProgress(progress, classifyUpdate(len(scrape.UniqueTitles)))

	songs, err := p.classifier.Classify(ctx, scrape.UniqueTitles)
	if err != nil {
		return nil, err
	}

	p.sendProgress(progress, classifyDoneUpdate(songs))
	return songs, nil
}

// ensureSession returns a valid session, entering awaiting_auth and running
// the interactive flow only when the stored one is missing or expired.
func (p *Pipeline) ensureSession(ctx context.Context, progress chan<- ProgressUpdate) (*models.AuthSession, error) {
	if p.sessions != nil {
		session, err := p.sessions.Get()
		if err != nil {
			return nil, err
		}
		if session.Valid(time.Now()) {
			return session, nil
		}
	}

	if err := p.transition(StatusAwaitingAuth); err != nil {
		return nil, err
	}
	p.sendProgress(progress, awaitAuthUpdate())

	if p.auth == nil {
		return nil, fmt.Errorf("no stored session and no authorization flow: %w", shared.ErrNotAuthorized)
	}

	session, err := p.auth.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if !session.Valid(time.Now()) {
		return nil, shared.ErrAuthExpired
	}

	return session, nil
}

// StatusForError maps stage errors to the pipeline status they leave behind.
// Useful for HTTP layers translating a failed run.
func StatusForError(err error) Status {
	switch {
	case err == nil:
		return StatusDone
	case errors.Is(err, shared.ErrNotAuthorized), errors.Is(err, shared.ErrAuthExpired):
		return StatusAwaitingAuth
	default:
		return StatusFailed
	}
}

// defaultSearchInterval spaces catalog searches when no override is given.
const defaultSearchInterval = 250 * time.Millisecond

func newSearchLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		interval = defaultSearchInterval
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
