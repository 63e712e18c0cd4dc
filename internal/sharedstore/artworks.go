package sharedstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"artcache/internal/fingerprint"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 50
)

const artworkColumns = "id, combined_hash, normalized_title, normalized_artist, title, artist, year, style, medium, museum, image_url, narration, summary, confidence, recognized, view_count, last_viewed_at, created_at, updated_at"

func scanArtwork(scanner interface{ Scan(dest ...any) error }) (*Artwork, error) {
	var (
		art        Artwork
		recognized int64
		lastViewed sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&art.ID,
		&art.CombinedHash,
		&art.NormalizedTitle,
		&art.NormalizedArtist,
		&art.Title,
		&art.Artist,
		&art.Year,
		&art.Style,
		&art.Medium,
		&art.Museum,
		&art.ImageURL,
		&art.Narration,
		&art.Summary,
		&art.Confidence,
		&recognized,
		&art.ViewCount,
		&lastViewed,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	art.Recognized = recognized != 0
	if ts := parseTime(lastViewed); !ts.IsZero() {
		art.LastViewedAt = &ts
	}
	art.CreatedAt = parseTime(createdRaw)
	art.UpdatedAt = parseTime(updatedRaw)
	return &art, nil
}

// ArtworkByHash returns the artwork with the given combined hash.
func (s *Store) ArtworkByHash(ctx context.Context, hash string) (*Artwork, error) {
	return s.artworkWhere(ctx, "combined_hash = ?", strings.TrimSpace(hash))
}

// ArtworkByID returns the artwork with the given identifier.
func (s *Store) ArtworkByID(ctx context.Context, id string) (*Artwork, error) {
	return s.artworkWhere(ctx, "id = ?", strings.TrimSpace(id))
}

func (s *Store) artworkWhere(ctx context.Context, clause string, arg any) (*Artwork, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+artworkColumns+" FROM artworks WHERE "+clause, arg)
	art, err := scanArtwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artwork: %w", err)
	}
	return art, nil
}

// SearchArtworks returns artworks whose normalized artist or title starts
// with the supplied prefixes. Rows matching both prefixes sort first, then
// the most viewed.
func (s *Store) SearchArtworks(ctx context.Context, q ArtworkQuery) ([]*Artwork, error) {
	ctx = ensureContext(ctx)
	titlePrefix := strings.TrimSpace(q.TitlePrefix)
	artistPrefix := strings.TrimSpace(q.ArtistPrefix)
	if titlePrefix == "" && artistPrefix == "" {
		return nil, fmt.Errorf("%w: title or artist prefix required", ErrInvalid)
	}
	titlePattern := ""
	if titlePrefix != "" {
		titlePattern = escapeLike(titlePrefix) + "%"
	}
	artistPattern := ""
	if artistPrefix != "" {
		artistPattern = escapeLike(artistPrefix) + "%"
	}

	query := `SELECT ` + artworkColumns + ` FROM artworks
WHERE (?1 <> '' AND normalized_artist LIKE ?1 ESCAPE '\')
   OR (?2 <> '' AND normalized_title LIKE ?2 ESCAPE '\')
ORDER BY ((?1 <> '' AND normalized_artist LIKE ?1 ESCAPE '\') AND (?2 <> '' AND normalized_title LIKE ?2 ESCAPE '\')) DESC,
         view_count DESC, created_at ASC
LIMIT ?3`
	rows, err := s.db.QueryContext(ctx, query, artistPattern, titlePattern, clampLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("search artworks: %w", err)
	}
	defer rows.Close()

	var out []*Artwork
	for rows.Next() {
		art, err := scanArtwork(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artwork: %w", err)
		}
		out = append(out, art)
	}
	return out, rows.Err()
}

// InsertArtwork stores a new artwork. Missing normalized fields and hash are
// derived from title and artist; a supplied hash must agree with them.
func (s *Store) InsertArtwork(ctx context.Context, in NewArtwork) (*Artwork, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if in.Title == "" && in.Artist == "" {
		return nil, fmt.Errorf("%w: title or artist required", ErrInvalid)
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalid, in.Confidence)
	}
	fp := fingerprint.Compute(in.Title, in.Artist, in.Year)
	if in.NormalizedTitle == "" && in.NormalizedArtist == "" {
		in.NormalizedTitle = fp.NormalizedTitle
		in.NormalizedArtist = fp.NormalizedArtist
	}
	expected := fingerprint.Hash(in.NormalizedTitle, in.NormalizedArtist)
	if in.CombinedHash == "" {
		in.CombinedHash = expected
	}
	if in.CombinedHash != expected {
		return nil, fmt.Errorf("%w: combined hash does not match normalized fields", ErrInvalid)
	}

	id := uuid.NewString()
	now := s.timestamp()
	_, err := s.execWithRetry(ctx, `INSERT INTO artworks (
    id, combined_hash, normalized_title, normalized_artist, title, artist, year, style, medium, museum,
    image_url, narration, summary, confidence, recognized, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.CombinedHash, in.NormalizedTitle, in.NormalizedArtist, in.Title, in.Artist,
		strings.TrimSpace(in.Year), in.Style, in.Medium, in.Museum, in.ImageURL,
		in.Narration, in.Summary, in.Confidence, boolToInt(in.Recognized), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert artwork: %w", err)
	}
	return s.ArtworkByID(ctx, id)
}

// UpdateArtwork applies a partial update to display and content fields.
func (s *Store) UpdateArtwork(ctx context.Context, id string, patch ArtworkPatch) (*Artwork, error) {
	if patch.Confidence != nil && (*patch.Confidence < 0 || *patch.Confidence > 1) {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalid, *patch.Confidence)
	}
	var recognized any
	if patch.Recognized != nil {
		recognized = boolToInt(*patch.Recognized)
	}
	res, err := s.execWithRetry(ctx, `UPDATE artworks SET
    title = COALESCE(?, title),
    artist = COALESCE(?, artist),
    year = COALESCE(?, year),
    style = COALESCE(?, style),
    medium = COALESCE(?, medium),
    museum = COALESCE(?, museum),
    image_url = COALESCE(?, image_url),
    narration = COALESCE(?, narration),
    summary = COALESCE(?, summary),
    confidence = COALESCE(?, confidence),
    recognized = COALESCE(?, recognized),
    updated_at = ?
WHERE id = ?`,
		nullable(patch.Title), nullable(patch.Artist), nullable(patch.Year), nullable(patch.Style),
		nullable(patch.Medium), nullable(patch.Museum), nullable(patch.ImageURL),
		nullable(patch.Narration), nullable(patch.Summary), nullableFloat(patch.Confidence),
		recognized, s.timestamp(), strings.TrimSpace(id),
	)
	if err != nil {
		return nil, fmt.Errorf("update artwork: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.ArtworkByID(ctx, id)
}

// IncrementViews bumps the view counter and last viewed time.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE artworks SET view_count = view_count + 1, last_viewed_at = ? WHERE id = ?",
		s.timestamp(), strings.TrimSpace(id),
	)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return requireAffected(res)
}

// CountArtworks returns the number of stored artworks.
func (s *Store) CountArtworks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM artworks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count artworks: %w", err)
	}
	return count, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	default:
		return limit
	}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return strings.TrimSpace(*value)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
