// Package tasks orchestrates the song pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline.Run] executes the stages for one profile:
//
//  1. Scrape: drive the browser through the profile's videos and collect
//     unique audio titles (or reuse a cached scrape).
//  2. Classify: batch the titles through the AI classifier; every title gets
//     exactly one record, falling back to unknown on model failure.
//  3. Authorize: reuse the stored Spotify session when valid, otherwise run
//     the interactive PKCE flow ([InteractiveAuth]).
//  4. Sync: rate-limited catalog searches, private playlist creation, and
//     best-effort track addition.
//
// The run's lifecycle is an explicit state machine ([Status]); transitions
// outside the table are programming errors and fail the run.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default
// to prevent blocking.
//
// # Implementation
//
// [Pipeline] depends on narrow interfaces ([ProfileScraper],
// [SongClassifier], [AuthFlow], [ScrapeCache]) plus [services.MusicService]
// and [services.SessionStore], so each stage can be substituted in tests.
package tasks
