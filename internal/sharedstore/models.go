package sharedstore

import "time"

// Artwork is a stored artwork record.
type Artwork struct {
	ID               string     `json:"id"`
	CombinedHash     string     `json:"combined_hash"`
	NormalizedTitle  string     `json:"normalized_title"`
	NormalizedArtist string     `json:"normalized_artist"`
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
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewArtwork carries the client-owned fields of an insert.
type NewArtwork struct {
	CombinedHash     string  `json:"combined_hash"`
	NormalizedTitle  string  `json:"normalized_title"`
	NormalizedArtist string  `json:"normalized_artist"`
	Title            string  `json:"title"`
	Artist           string  `json:"artist"`
	Year             string  `json:"year"`
	Style            string  `json:"style"`
	Medium           string  `json:"medium"`
	Museum           string  `json:"museum"`
	ImageURL         string  `json:"image_url"`
	Narration        string  `json:"narration"`
	Summary          string  `json:"summary"`
	Confidence       float64 `json:"confidence"`
	Recognized       bool    `json:"recognized"`
}

// ArtworkPatch is a partial update; nil fields are left unchanged.
type ArtworkPatch struct {
	Title      *string  `json:"title"`
	Artist     *string  `json:"artist"`
	Year       *string  `json:"year"`
	Style      *string  `json:"style"`
	Medium     *string  `json:"medium"`
	Museum     *string  `json:"museum"`
	ImageURL   *string  `json:"image_url"`
	Narration  *string  `json:"narration"`
	Summary    *string  `json:"summary"`
	Confidence *float64 `json:"confidence"`
	Recognized *bool    `json:"recognized"`
}

// ArtworkQuery selects a bounded set of artworks by normalized prefixes.
type ArtworkQuery struct {
	TitlePrefix  string
	ArtistPrefix string
	Limit        int
}

// Artist is a stored artist record.
type Artist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Introduction   string    `json:"introduction,omitempty"`
	ArtworksCount  int64     `json:"artworks_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewArtist carries the client-owned fields of an artist insert.
type NewArtist struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Introduction   string `json:"introduction"`
}

// ArtistPatch is a partial update; nil fields are left unchanged.
type ArtistPatch struct {
	NormalizedName *string `json:"normalized_name"`
	Introduction   *string `json:"introduction"`
}

// ArtistQuery selects artists by exactly one of Name, NormalizedName or
// Search (a substring of the normalized name).
type ArtistQuery struct {
	Name           string
	NormalizedName string
	Search         string
	Limit          int
}
