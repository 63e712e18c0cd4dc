// Package remote is the HTTP client for the shared artwork store.
//
// It exposes exact find-by-hash, bounded near-duplicate search, artist lookup
// with a normalized and fuzzy fallback, and upserts that resolve concurrent
// insert races by re-querying and patching. Every request carries the single
// shared API credential as a bearer token.
//
// Failures are classified into the Kind taxonomy. Network, timeout, 5xx and
// malformed-payload failures are retried with linear backoff; authorization
// and malformed-request failures are not. Reads that still fail degrade to
// "not found" so callers treat the artwork as uncached. Writes report
// ErrSaveFailed (or ErrUnauthorized). View count increments run detached and
// never report errors; Wait drains them.
package remote
