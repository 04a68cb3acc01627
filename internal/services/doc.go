// Package services defines the [Platform] capability interface the sync engine drives, and implements it for Apple
// Music.
//
// # Platform Interface
//
// A platform exposes catalog search and library playlist operations: list, create, replace tracks, fetch, delete.
// Platforms that can edit playlist metadata in place also implement [MetadataUpdater].
//
// # Apple Music Implementation
//
// [AppleMusicService] signs an ES256 developer token from the MusicKit .p8 key ([DeveloperTokenSource]). The token
// is cached by [oauth2.ReuseTokenSource] and attached by [oauth2.Transport]. Library requests also carry the user's
// Music-User-Token, which the token page in the server package captures.
//
// # Error Handling
//
// Remote failures are [*PlatformError] values with a kind:
//   - [KindAuth] : 401/403, missing or unreadable credentials, no user token
//   - [KindNotFound] : 404 or no catalog match
//   - [KindRateLimited] : 429, with RetryAfter from the Retry-After header
//   - [KindTransient] : 5xx, timeouts, connection failures
//   - [KindProtocol] : any other 4xx or an undecodable body
//
// Each kind matches a shared sentinel through errors.Is (e.g. [shared.ErrRateLimited]). Context cancellation is
// returned as-is so callers can tell an interrupt from a remote failure.
package services
