// Package resolver decides, for each artwork the user looks at, whether a
// narration can be reused or must be generated, and writes new narrations
// back to the shared store.
//
// Resolution order: the local recent cache, then an exact remote lookup by
// fingerprint, then (only for a candidate whose confidence clears the gate)
// a near-duplicate search whose best fuzzy match becomes the canonical
// record, and finally an upsert of the candidate. Low-confidence candidates
// are returned untouched and never persisted. The artist introduction is
// resolved concurrently with the artwork and merged into the result.
//
// Remote read failures degrade to misses. Write failures are reported on
// Resolution.PersistErr and never prevent a result from being returned.
// View increments and introduction backfills run detached from the
// caller's context; Close waits for them.
package resolver
