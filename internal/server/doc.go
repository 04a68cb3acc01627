// Package server provides HTTP routing, middleware, and the MusicKit token page used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] logs each request at debug level.
//
// The [BasicRouter] implementation registers method patterns ("GET /path") on an [http.ServeMux], so requests
// with another method get a 405 from the mux.
//
// # Token Page
//
// Apple Music library calls need a Music-User-Token, which only MusicKit JS can issue. [TokenHandler] serves a
// page at GET / that loads MusicKit with the developer token and, once the user authorizes, posts the token to
// POST /token as {"token": "..."}.
//
// The handler delivers exactly one [TokenResult] on its channel. Later posts get 409 Conflict.
//
// # Current Usage
//
// The `apple-music token` command starts a temporary server on the configured host and port, opens the page in a
// browser, waits for the result, stores the token in the config file and shuts the server down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
