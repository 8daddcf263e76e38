// Package models defines the domain entities for the songlift pipeline.
//
// The pipeline moves data strictly left to right:
//
//	profile → raw titles → deduplicated titles → [ClassifiedSong] → matched track IDs → [PlaylistResult]
//
// Two categories of types live here:
//
// 1. Pipeline records passed between stages:
//   - [ScrapeResult] : Output of the scrape stage (profile, video count, unique titles)
//   - [ClassifiedSong] : One AI classification per raw title, order preserved
//   - [PlaylistResult] : Immutable record of a completed playlist sync
//
// 2. Session state owned by the session store:
//   - [AuthSession] : Spotify bearer token, expiry, and user ID
//
// [SongKind] and [Confidence] are closed string enums; unknown is a
// first-class member of both and doubles as the fallback value when a
// classification batch cannot be recovered.
package models
