package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"songlift/internal/models"
	"songlift/internal/shared"
)

// Scraper collects a profile's unique audio titles.
type Scraper interface {
	ScrapeProfile(ctx context.Context, profile string, onProgress func(stage string, current, total int)) (*models.ScrapeResult, error)
}

// Classifier maps raw titles to song records one-to-one.
type Classifier interface {
	Classify(ctx context.Context, titles []string) ([]models.ClassifiedSong, error)
}

// usernamePattern matches the handle charset TikTok allows.
var usernamePattern = regexp.MustCompile(`^[a-z0-9._]+$`)

// processRequest is the body accepted by POST /scrape.
type processRequest struct {
	Username      string `json:"username"`
	ProcessWithAI bool   `json:"process_with_ai"`
}

// processResponse reports one profile's scrape and classification outcome.
// ProcessedSongs is null when classification was not requested.
type processResponse struct {
	Username            string                  `json:"username"`
	TotalVideosScraped  int                     `json:"total_videos_scraped"`
	TotalUniqueTitles   int                     `json:"total_unique_titles"`
	RealSongsIdentified int                     `json:"real_songs_identified"`
	RawTitles           []string                `json:"raw_titles"`
	ProcessedSongs      []models.ClassifiedSong `json:"processed_songs"`
	Message             string                  `json:"message"`
}

// errorResponse is the non-2xx body shape.
type errorResponse struct {
	Detail string `json:"detail"`
}

// ProcessHandler runs the scrape stage, and optionally classification, for a
// requested profile. Implements the Handler interface.
type ProcessHandler struct {
	scraper    Scraper
	classifier Classifier
	logger     *log.Logger
}

// NewProcessHandler creates the handler. classifier may be nil when the
// deployment has no AI credentials; process_with_ai requests then fail.
func NewProcessHandler(scraper Scraper, classifier Classifier, logger *log.Logger) *ProcessHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProcessHandler{scraper: scraper, classifier: classifier, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProcessHandler) Routes() []string {
	return []string{"/scrape"}
}

func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username, err := NormalizeUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ProcessWithAI && h.classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classification is not configured")
		return
	}

	h.logger.Info("processing profile", "username", username, "classify", req.ProcessWithAI)

	scrape, err := h.scraper.ScrapeProfile(r.Context(), username, nil)
	if err != nil {
		h.logger.Error("scrape failed", "username", username, "error", err)
		writeError(w, statusForStageError(err), fmt.Sprintf("failed to scrape profile %s: %v", username, err))
		return
	}

	resp := processResponse{
		Username:           username,
		TotalVideosScraped: scrape.TotalVideosScraped,
		TotalUniqueTitles:  len(scrape.UniqueTitles),
		RawTitles:          scrape.UniqueTitles,
		Message:            fmt.Sprintf("scraped %d videos, found %d unique titles", scrape.TotalVideosScraped, len(scrape.UniqueTitles)),
	}

	if req.ProcessWithAI {
		songs, err := h.classifier.Classify(r.Context(), scrape.UniqueTitles)
		if err != nil {
			h.logger.Error("classification failed", "username", username, "error", err)
			writeError(w, statusForStageError(err), fmt.Sprintf("failed to classify titles: %v", err))
			return
		}
		resp.ProcessedSongs = songs
		resp.RealSongsIdentified = models.CountRealSongs(songs)
		resp.Message = fmt.Sprintf("scraped %d videos, identified %d songs from %d unique titles",
			scrape.TotalVideosScraped, resp.RealSongsIdentified, len(scrape.UniqueTitles))
	}

	writeJSON(w, http.StatusOK, resp)
}

// NormalizeUsername strips a leading @, lowercases, and validates the handle.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if username == "" {
		return "", fmt.Errorf("username is required: %w", shared.ErrInvalidInput)
	}
	if !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("username %q contains invalid characters: %w", username, shared.ErrInvalidInput)
	}
	return username, nil
}

// statusForStageError maps pipeline stage errors to response codes.
func statusForStageError(err error) int {
	switch {
	case errors.Is(err, shared.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrBlocked):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
