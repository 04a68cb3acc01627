// Package models defines the platform-independent playlist entities kept in the local store.
//
//   - [Track] : song metadata plus per-platform catalog ids
//   - [Playlist] : an ordered track list with tags and per-platform sync links
//   - [IndexEntry] : the summary row the store keeps for listing without loading every record
//
// Track order is meaningful; every mutator preserves the relative order of the tracks it does not touch.
// A playlist's PlatformIDs entry is the sync link: present only once the playlist has been pushed to (or pulled from)
// that platform. A track's PlatformIDs entry is a verified catalog match.
package models
