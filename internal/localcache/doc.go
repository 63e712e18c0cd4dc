// Package localcache keeps the most recently resolved artworks on the
// device so repeated views within the TTL skip the network entirely.
//
// Entries are ordered most recent first and capped at a fixed capacity;
// storing beyond it evicts the oldest entry. An entry older than the TTL is
// a miss even while it is still on disk. When a path is configured the
// cache persists as a JSON array, rewritten atomically under an advisory
// file lock so several processes can share it. Without a path the cache
// lives in memory only.
package localcache
