package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// ScrapeResultRepository caches scrape results so a profile can be
// re-classified or re-synced without driving the browser again.
type ScrapeResultRepository struct {
	db *sql.DB
}

// NewScrapeResultRepository creates a new [ScrapeResultRepository] with the given database connection
func NewScrapeResultRepository(db *sql.DB) *ScrapeResultRepository {
	return &ScrapeResultRepository{db: db}
}

// Save stores a scrape result and returns its generated ID.
func (r *ScrapeResultRepository) Save(result *models.ScrapeResult) (string, error) {
	if err := result.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	titles, err := json.Marshal(result.UniqueTitles)
	if err != nil {
		return "", fmt.Errorf("failed to encode titles: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO scrape_results (id, profile, total_videos, titles, scraped_at) VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, id, result.Profile, result.TotalVideosScraped, string(titles), time.Now()); err != nil {
		return "", fmt.Errorf("failed to insert scrape result: %w", err)
	}

	return id, nil
}

// Latest retrieves the most recent scrape result for a profile, or nil if the
// profile has never been scraped.
func (r *ScrapeResultRepository) Latest(profile string) (*models.ScrapeResult, error) {
	query := `
		SELECT profile, total_videos, titles
		FROM scrape_results
		WHERE profile = ?
		ORDER BY scraped_at DESC
		LIMIT 1
	`

	var (
		result    models.ScrapeResult
		rawTitles string
	)

	err := r.db.QueryRow(query, profile).Scan(&result.Profile, &result.TotalVideosScraped, &rawTitles)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape result: %w", err)
	}

	if err := json.Unmarshal([]byte(rawTitles), &result.UniqueTitles); err != nil {
		return nil, fmt.Errorf("failed to decode titles: %w", err)
	}

	return &result, nil
}

// Prune deletes cached results older than the given age. Returns the number
// of rows removed.
func (r *ScrapeResultRepository) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	res, err := r.db.Exec("DELETE FROM scrape_results WHERE scraped_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune scrape results: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
