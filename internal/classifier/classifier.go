// Package classifier turns scraped audio titles into classified song
// records using a batched AI prompt with retry-then-fallback.
//
// The classifier never hard-fails on model behavior. A batch whose response
// cannot be parsed into the expected shape is retried with backoff; a batch
// that exhausts its attempts yields fallback records so the output always
// lines up one-to-one with the input titles, in input order.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"songlift/internal/models"
	"songlift/internal/shared"
)

const (
	defaultBatchSize   = 20
	maxBatchSize       = 50
	defaultMaxAttempts = 3
	defaultConcurrency = 3

	retryBaseDelay = 500 * time.Millisecond
)

// Classifier batches titles into prompts and assembles classified records.
type Classifier struct {
	ai          TextGenerator
	batchSize   int
	maxAttempts int
	concurrency int
	logger      *log.Logger
}

// Option configures a [Classifier].
type Option func(*Classifier)

// WithBatchSize sets how many titles share one prompt. Values outside
// [1, 50] are clamped.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n < 1 {
			n = 1
		}
		if n > maxBatchSize {
			n = maxBatchSize
		}
		c.batchSize = n
	}
}

// WithMaxAttempts sets how many times a batch is tried before falling back.
func WithMaxAttempts(n int) Option {
	return func(c *Classifier) {
		if n < 1 {
			n = 1
		}
		c.maxAttempts = n
	}
}

// WithConcurrency bounds how many batches are classified in parallel.
func WithConcurrency(n int) Option {
	return func(c *Classifier) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a classifier backed by the given text generator.
func New(ai TextGenerator, opts ...Option) *Classifier {
	c := &Classifier{
		ai:          ai,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		concurrency: defaultConcurrency,
		logger:      shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rawClassification is the per-title shape the model is asked to return.
type rawClassification struct {
	Song       *string `json:"song"`
	Artist     *string `json:"artist"`
	Type       string  `json:"type"`
	Confidence string  `json:"confidence"`
}

// Classify maps every input title to exactly one classified record, in input
// order. Model failures are absorbed per batch: after the final attempt the
// batch's titles all receive fallback records. The only returned error is
// context cancellation.
func (c *Classifier) Classify(ctx context.Context, titles []string) ([]models.ClassifiedSong, error) {
	if len(titles) == 0 {
		return []models.ClassifiedSong{}, nil
	}

	batches := splitBatches(titles, c.batchSize)
	results := make([][]models.ClassifiedSong, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := c.classifyBatch(gctx, i, batch)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.ClassifiedSong, 0, len(titles))
	for _, r := range results {
		out = append(out, r...)
	}

	return out, nil
}

// classifyBatch tries a batch up to maxAttempts times, then falls back.
// RawTitle always comes from the input, never from model output. A cancelled
// context is the one failure that propagates instead of falling back, so an
// aborted run never masquerades as a completed one.
func (c *Classifier) classifyBatch(ctx context.Context, index int, titles []string) ([]models.ClassifiedSong, error) {
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewExponential(retryBaseDelay))

	var parsed []rawClassification
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, err := c.ai.GenerateText(ctx, buildPrompt(titles))
		if err != nil {
			return retry.RetryableError(err)
		}

		rows, err := parseResponse(text, len(titles))
		if err != nil {
			return retry.RetryableError(err)
		}

		parsed = rows
		return nil
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		c.logger.Warn("classification batch fell back after exhausting attempts",
			"batch", index, "titles", len(titles), "attempts", c.maxAttempts, "error", err)

		out := make([]models.ClassifiedSong, len(titles))
		for i, title := range titles {
			out[i] = models.FallbackSong(title)
		}
		return out, nil
	}

	out := make([]models.ClassifiedSong, len(titles))
	for i, title := range titles {
		out[i] = toClassifiedSong(title, parsed[i])
	}
	return out, nil
}

func toClassifiedSong(rawTitle string, row rawClassification) models.ClassifiedSong {
	song := row.Song
	artist := row.Artist
	if song != nil && strings.TrimSpace(*song) == "" {
		song = nil
	}
	if song == nil {
		artist = nil
	}

	return models.ClassifiedSong{
		RawTitle:   rawTitle,
		Song:       song,
		Artist:     artist,
		Kind:       models.ParseSongKind(strings.ToLower(strings.TrimSpace(row.Type))),
		Confidence: models.ParseConfidence(strings.ToLower(strings.TrimSpace(row.Confidence))),
	}
}

// parseResponse decodes a model reply, tolerating markdown code fences, and
// enforces the one-row-per-title shape.
func parseResponse(text string, want int) ([]rawClassification, error) {
	cleaned := stripCodeFences(text)

	var rows []rawClassification
	if err := json.Unmarshal([]byte(cleaned), &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSchemaMismatch, err)
	}

	if len(rows) != want {
		return nil, fmt.Errorf("%w: got %d rows for %d titles", shared.ErrSchemaMismatch, len(rows), want)
	}

	return rows, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func splitBatches(titles []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(titles); start += size {
		end := start + size
		if end > len(titles) {
			end = len(titles)
		}
		batches = append(batches, titles[start:end])
	}
	return batches
}

func buildPrompt(titles []string) string {
	var b strings.Builder

	b.WriteString("You are identifying songs from TikTok audio titles. ")
	b.WriteString("For each numbered title below, determine whether it refers to a commercially released song.\n\n")
	b.WriteString("Respond with ONLY a JSON array, one object per title, in the same order. Each object has:\n")
	b.WriteString(`  "song": the song name, or null if this is not a real released song (e.g. "original sound")` + "\n")
	b.WriteString(`  "artist": the artist name, or null if song is null` + "\n")
	b.WriteString(`  "type": one of "original", "remix", "cover", "mashup", "unknown"` + "\n")
	b.WriteString(`  "confidence": one of "high", "medium", "low"` + "\n\n")
	b.WriteString("Titles:\n")

	for i, title := range titles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
	}

	return b.String()
}
