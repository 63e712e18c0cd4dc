package resolver

import (
	"strings"
	"unicode/utf8"

	"artcache/internal/fingerprint"
	"artcache/internal/remote"
)

const maxSummaryRunes = 200

// Request is a lookup for one recognized artwork, optionally carrying
// freshly generated content.
type Request struct {
	Title              string
	Artist             string
	Year               string
	Style              string
	Medium             string
	Museum             string
	ImageURL           string
	Narration          string
	Summary            string
	Confidence         *float64
	ArtistIntroduction string
}

// Source reports where a resolution came from.
type Source string

const (
	// SourceLocal is a hit in the device-local recent cache.
	SourceLocal Source = "local"
	// SourceRemote is an exact fingerprint hit in the shared store.
	SourceRemote Source = "remote"
	// SourceCanonical is an existing near-duplicate reused instead of the candidate.
	SourceCanonical Source = "canonical"
	// SourceCreated is the candidate, newly written to the shared store.
	SourceCreated Source = "created"
	// SourceCandidate is the candidate returned without being persisted.
	SourceCandidate Source = "candidate"
)

// Resolution is the content to present for a request.
type Resolution struct {
	Record             remote.ArtworkRecord
	ArtistIntroduction string
	Source             Source
	// PersistErr is set when the candidate could not be written to the
	// shared store. The resolution is still usable.
	PersistErr error
}

// Cached reports whether the narration was reused rather than generated.
func (r *Resolution) Cached() bool {
	switch r.Source {
	case SourceLocal, SourceRemote, SourceCanonical:
		return true
	default:
		return false
	}
}

func (req Request) normalized() Request {
	req.Title = strings.TrimSpace(req.Title)
	req.Artist = strings.TrimSpace(req.Artist)
	req.Year = strings.TrimSpace(req.Year)
	req.Narration = strings.TrimSpace(req.Narration)
	req.Summary = strings.TrimSpace(req.Summary)
	req.ArtistIntroduction = strings.TrimSpace(req.ArtistIntroduction)
	return req
}

// record builds the artwork record for the candidate content.
func (req Request) record(fp fingerprint.Fingerprint) remote.ArtworkRecord {
	summary := req.Summary
	if summary == "" {
		summary = Summarize(req.Narration)
	}
	var confidence float64
	if req.Confidence != nil {
		confidence = min(max(*req.Confidence, 0), 1)
	}
	return remote.ArtworkRecord{
		CombinedHash:     fp.CombinedHash,
		NormalizedTitle:  fp.NormalizedTitle,
		NormalizedArtist: fp.NormalizedArtist,
		Title:            req.Title,
		Artist:           req.Artist,
		Year:             req.Year,
		Style:            strings.TrimSpace(req.Style),
		Medium:           strings.TrimSpace(req.Medium),
		Museum:           strings.TrimSpace(req.Museum),
		ImageURL:         strings.TrimSpace(req.ImageURL),
		Narration:        req.Narration,
		Summary:          summary,
		Confidence:       confidence,
		Recognized:       true,
	}
}

// Summarize returns the first sentence of narration, cut to 200 runes.
func Summarize(narration string) string {
	narration = strings.Join(strings.Fields(narration), " ")
	if narration == "" {
		return ""
	}
	for i, r := range narration {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next == len(narration) || narration[next] == ' ' {
			narration = narration[:next]
			break
		}
	}
	runes := []rune(narration)
	if len(runes) <= maxSummaryRunes {
		return narration
	}
	return strings.TrimSpace(string(runes[:maxSummaryRunes-1])) + "…"
}
