// Package models defines the canonical types shared by every stage of the playlist pipeline.
//
// 1. Pipeline values, created fresh per request and never persisted:
//   - [Track] : normalized track record with documented defaults
//   - [Playlist] : playlist metadata with its tracks in provider order
//   - [Analysis] : statistics computed from a playlist
//   - [ArtistMiss] : a seed artist skipped while building recommendations
//
// 2. Persistent records: the [Model] interface, implemented by [SessionToken].
//
// A [Platform] is one of [Spotify] or [YouTubeMusic]. Plain YouTube links are reported as [YouTube] by the locator and
// folded into [YouTubeMusic] by [Platform.Canonical].
package models
