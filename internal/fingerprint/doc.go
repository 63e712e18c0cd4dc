// Package fingerprint derives stable identities for artworks from noisy
// recognition output and compares identities for near-duplicate detection.
//
// Normalization is load-bearing for deduplication and applies identically to
// titles and artist names:
//   - Unicode NFD decomposition followed by removal of combining marks
//     ("Café" becomes "cafe")
//   - lowercasing
//   - deletion of quote and bracket decorations: " ' ` ‘ ’ “ ” « » ‹ › ( ) [ ] { } < >
//   - every other rune that is not a letter or digit becomes a space
//   - whitespace runs collapse to a single space, ends are trimmed
//   - one leading article is dropped when another word follows it
//     (the, a, an, le, la, les, el, los, las, il, lo, gli, der, die, das, het)
//
// The combined hash is the hex SHA-256 of normalizedTitle + "|" +
// normalizedArtist. The year is carried on the fingerprint but never hashed,
// since recognition passes disagree on dates far more often than on names.
//
// Similarity is an edit-distance score over the normalized artist (weighted
// 0.6) and title (weighted 0.4). The edit-distance algorithm sits behind the
// Metric interface so it can be swapped without touching callers.
package fingerprint
