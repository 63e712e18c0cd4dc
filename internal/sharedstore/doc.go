// Package sharedstore is the reference implementation of the shared artwork
// store: a SQLite database behind a small bearer-authenticated JSON API.
//
// The store owns identifiers, timestamps and view counters. Artwork
// combined hashes are unique; a second insert of the same hash is rejected
// with ErrDuplicate (HTTP 409) so clients can fall back to an update.
// Artist artwork counts are derived from the artworks table on read.
package sharedstore
