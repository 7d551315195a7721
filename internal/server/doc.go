// Package server provides HTTP routing, middleware, sessions and the JSON API for mixtape.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering and a JSON 404.
//
// # Web Application
//
// [App] serves the JSON API:
//
//	GET  /                    service index
//	GET  /health              platform availability
//	GET  /login-spotify       start Spotify OAuth, returns {auth_url}
//	GET  /callback            finish Spotify OAuth, redirects to /
//	POST /validate-playlist   {playlist_url}
//	POST /analyze-playlist    {playlist_url}
//	POST /get-recommendations {playlist_url, num_recommendations}
//
// Each request builds its own sources from the caller's token via a services.SourceFactory and runs a
// tasks.Pipeline. Requests are tagged with a uuid request id, logged, and protected by a recovery middleware.
//
// # Sessions
//
// [Sessions] keeps a random session id and the pending OAuth state in a gorilla/sessions cookie.
// Tokens live server-side in a [TokenStore] keyed by session id. Tokens expiring within a minute are
// refreshed before use; a failed refresh deletes the token and the request continues anonymously.
//
// # CLI OAuth Callback
//
// [OAuthHandler] serves the one-shot /callback used by `mixtape auth spotify`, which runs a temporary local
// server, opens the browser, and waits for a single [OAuthResult].
package server
