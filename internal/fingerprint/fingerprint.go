package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is the normalized identity of an artwork.
type Fingerprint struct {
	NormalizedTitle  string `json:"normalized_title"`
	NormalizedArtist string `json:"normalized_artist"`
	Year             string `json:"year,omitempty"`
	CombinedHash     string `json:"combined_hash"`
}

// Compute builds the fingerprint for the supplied title, artist and year.
func Compute(title, artist, year string) Fingerprint {
	normalizedTitle := Normalize(title)
	normalizedArtist := Normalize(artist)
	return Fingerprint{
		NormalizedTitle:  normalizedTitle,
		NormalizedArtist: normalizedArtist,
		Year:             strings.TrimSpace(year),
		CombinedHash:     Hash(normalizedTitle, normalizedArtist),
	}
}

// Hash returns the combined hash for already-normalized title and artist.
func Hash(normalizedTitle, normalizedArtist string) string {
	sum := sha256.Sum256([]byte(normalizedTitle + "|" + normalizedArtist))
	return hex.EncodeToString(sum[:])
}

// IsZero reports whether the fingerprint was never computed.
func (f Fingerprint) IsZero() bool {
	return f.CombinedHash == ""
}

// String returns a short form suitable for logs.
func (f Fingerprint) String() string {
	if len(f.CombinedHash) > 12 {
		return f.CombinedHash[:12]
	}
	return f.CombinedHash
}
