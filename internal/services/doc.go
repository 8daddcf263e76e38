// Package services defines the [MusicService] and [SessionStore] interfaces
// and implements Spotify as the concrete music catalog.
//
// # Spotify Implementation
//
// [SpotifyService] authorizes via the OAuth 2.0 authorization code flow with
// PKCE, so it operates as a public client with no client secret. The service
// issues the consent URL, redeems the authorization code against the stored
// verifier, and resolves the authorized user's ID in the same exchange.
//
// Catalog calls require an installed session. An expired session is rejected
// locally before any request is sent, and a 401 from the API maps to the same
// [shared.ErrAuthExpired] so callers handle both identically by
// reauthorizing.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthorized] : no session installed
//   - [shared.ErrAuthExpired] : token expired, reauthorization needed
//   - [shared.ErrSearch] : catalog search failed
//   - [shared.ErrPlaylistCreate] : playlist creation failed
//
// A search with zero results is not an error; it returns a nil track and the
// caller skips that song.
package services
