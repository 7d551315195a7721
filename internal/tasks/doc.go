// Package tasks runs playlist requests end to end with progress reporting.
//
// # Core Operations
//
// [Pipeline] exposes three operations:
//
//  1. [Pipeline.Validate] : Cheap URL and size check
//     - Locates the platform and id
//     - Fetches only the playlist name and track count
//     - Reports failures in the result instead of returning an error
//
//  2. [Pipeline.Analyze] : Fetch and describe a playlist
//     - Fetches all tracks through the platform's source
//     - Computes artist, album, popularity and duration statistics
//
//  3. [Pipeline.Recommend] : Fetch, analyze and recommend
//     - Rejects playlists below the configured minimum with [NotEnoughTracksError]
//     - Seeds recommendations from the playlist's top artists
//     - Falls back once to YouTube Music when a Spotify playlist yields nothing
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values to the channel set with [Pipeline.WithProgress].
// Updates use select with default so a slow reader never stalls a request.
//
// # Sources
//
// Sources are built per caller by [SourcesFor] from a [services.SourceFactory] and the caller's token.
// A nil source means the platform is unavailable.
package tasks
