// Package repositories implements SQLite persistence for pipeline state.
//
// Key Implementations:
//   - [SessionRepository] : Spotify auth session storage with atomic token writes
//     and single-use PKCE verifier handoff between authorize and callback
//   - [ScrapeResultRepository] : cached scrape results keyed by profile, so a
//     re-run can classify without driving the browser again
//
// The session table holds at most one row. Writing a new session replaces the
// previous one in a single transaction so a reader never observes a token from
// one session paired with the expiry of another.
package repositories
