package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"songlift/internal/classifier"
	"songlift/internal/repositories"
	"songlift/internal/scraper"
	"songlift/internal/services"
	"songlift/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer

	db *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, scrapeCommand, classifyCommand, runCommand, syncCommand, cacheCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// reloadConfig replaces the runner's config when the command names an
// explicit file. Missing files fall back to the already-loaded config.
func (r *Runner) reloadConfig(path string) {
	if path == "" {
		return
	}
	if config, err := shared.LoadConfig(path); err == nil {
		r.config = config
	} else if !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("failed to load config, keeping current", "path", path, "error", err)
	}
}

// database lazily opens the configured SQLite database and runs migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// sessionStore returns the verifier and session repository.
func (r *Runner) sessionStore() (services.SessionStore, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewSessionRepository(db), nil
}

// scrapeCache returns the scrape result repository.
func (r *Runner) scrapeCache() (*repositories.ScrapeResultRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewScrapeResultRepository(db), nil
}

// musicService builds the Spotify client from configured credentials.
func (r *Runner) musicService() (services.MusicService, error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: credentials.spotify.client_id is not set", shared.ErrMissingCredentials)
	}
	return services.NewSpotifyService(creds.ClientID, creds.RedirectURI)
}

// newClassifier builds the AI classification stage from configured credentials.
func (r *Runner) newClassifier() (*classifier.Classifier, error) {
	creds := r.config.Credentials.Gemini
	ai, err := classifier.NewGeminiClient(creds.APIKey, creds.Model, creds.BaseURL)
	if err != nil {
		return nil, err
	}

	opts := []classifier.Option{classifier.WithLogger(r.logger)}
	if n := r.config.Classifier.BatchSize; n > 0 {
		opts = append(opts, classifier.WithBatchSize(n))
	}
	if n := r.config.Classifier.MaxAttempts; n > 0 {
		opts = append(opts, classifier.WithMaxAttempts(n))
	}
	if n := r.config.Classifier.Concurrency; n > 0 {
		opts = append(opts, classifier.WithConcurrency(n))
	}

	return classifier.New(ai, opts...), nil
}

// newScraper builds the browser engine, replaying cookies from the
// configured cURL export when present.
func (r *Runner) newScraper() (*scraper.Engine, error) {
	var headers *shared.CurlHeaders
	if path := r.config.Scraper.CurlFile; path != "" {
		parsed, err := shared.ParseCurlFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cURL file %s: %w", path, err)
		}
		headers = parsed
		r.logger.Info("loaded session cookies", "file", path)
	}

	return scraper.NewEngine(r.config.Scraper, headers, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
