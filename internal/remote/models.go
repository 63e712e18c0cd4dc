package remote

import "time"

// ArtworkRecord is the shared store entity for a single artwork.
type ArtworkRecord struct {
	ID               string     `json:"id,omitempty"`
	CombinedHash     string     `json:"combined_hash"`
	NormalizedTitle  string     `json:"normalized_title,omitempty"`
	NormalizedArtist string     `json:"normalized_artist,omitempty"`
	Title            string     `json:"title"`
	Artist           string     `json:"artist"`
	Year             string     `json:"year,omitempty"`
	Style            string     `json:"style,omitempty"`
	Medium           string     `json:"medium,omitempty"`
	Museum           string     `json:"museum,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	Narration        string     `json:"narration"`
	Summary          string     `json:"summary,omitempty"`
	Confidence       float64    `json:"confidence"`
	Recognized       bool       `json:"recognized"`
	ViewCount        int64      `json:"view_count"`
	LastViewedAt     *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitzero"`
	UpdatedAt        time.Time  `json:"updated_at,omitzero"`
}

// ArtistRecord is the shared store entity for an artist biography.
type ArtistRecord struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Introduction   string `json:"introduction,omitempty"`
	ArtworksCount  int64  `json:"artworks_count"`
}

// artworkInsert carries every client-owned field. View counts and
// timestamps are left to the store defaults.
type artworkInsert struct {
	CombinedHash     string  `json:"combined_hash"`
	NormalizedTitle  string  `json:"normalized_title"`
	NormalizedArtist string  `json:"normalized_artist"`
	Title            string  `json:"title"`
	Artist           string  `json:"artist"`
	Year             string  `json:"year,omitempty"`
	Style            string  `json:"style,omitempty"`
	Medium           string  `json:"medium,omitempty"`
	Museum           string  `json:"museum,omitempty"`
	ImageURL         string  `json:"image_url,omitempty"`
	Narration        string  `json:"narration"`
	Summary          string  `json:"summary,omitempty"`
	Confidence       float64 `json:"confidence"`
	Recognized       bool    `json:"recognized"`
}

// artworkPatch is restricted to display and content fields. Empty strings
// are omitted so a sparse submission never blanks stored values.
type artworkPatch struct {
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Year       string  `json:"year,omitempty"`
	Style      string  `json:"style,omitempty"`
	Medium     string  `json:"medium,omitempty"`
	Museum     string  `json:"museum,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
	Narration  string  `json:"narration,omitempty"`
	Summary    string  `json:"summary,omitempty"`
	Confidence float64 `json:"confidence"`
	Recognized bool    `json:"recognized"`
}

type artistInsert struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Introduction   string `json:"introduction,omitempty"`
}

type artistPatch struct {
	NormalizedName string `json:"normalized_name,omitempty"`
	Introduction   string `json:"introduction,omitempty"`
}

func newArtworkInsert(rec ArtworkRecord) artworkInsert {
	return artworkInsert{
		CombinedHash:     rec.CombinedHash,
		NormalizedTitle:  rec.NormalizedTitle,
		NormalizedArtist: rec.NormalizedArtist,
		Title:            rec.Title,
		Artist:           rec.Artist,
		Year:             rec.Year,
		Style:            rec.Style,
		Medium:           rec.Medium,
		Museum:           rec.Museum,
		ImageURL:         rec.ImageURL,
		Narration:        rec.Narration,
		Summary:          rec.Summary,
		Confidence:       rec.Confidence,
		Recognized:       rec.Recognized,
	}
}

func newArtworkPatch(rec ArtworkRecord) artworkPatch {
	return artworkPatch{
		Title:      rec.Title,
		Artist:     rec.Artist,
		Year:       rec.Year,
		Style:      rec.Style,
		Medium:     rec.Medium,
		Museum:     rec.Museum,
		ImageURL:   rec.ImageURL,
		Narration:  rec.Narration,
		Summary:    rec.Summary,
		Confidence: rec.Confidence,
		Recognized: rec.Recognized,
	}
}
