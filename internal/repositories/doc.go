// Package repositories implements SQLite persistence for OAuth tokens.
//
// [TokenRepository] stores one token per browser session and platform in the session_tokens table.
// The HTTP server is its only writer; sessions are identified by the random id held in the signed cookie.
// Records are keyed on (session_id, platform) so saving a refreshed token replaces the previous one in place.
package repositories
