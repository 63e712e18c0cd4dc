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

const artistSelect = `SELECT a.id, a.name, a.normalized_name, a.introduction,
    (SELECT COUNT(1) FROM artworks w WHERE w.normalized_artist = a.normalized_name) AS artworks_count,
    a.created_at, a.updated_at
FROM artists a`

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		artist     Artist
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&artist.ID,
		&artist.Name,
		&artist.NormalizedName,
		&artist.Introduction,
		&artist.ArtworksCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	artist.CreatedAt = parseTime(createdRaw)
	artist.UpdatedAt = parseTime(updatedRaw)
	return &artist, nil
}

// FindArtists returns artists matching the query. Exact lookups return at
// most one row per name; substring searches are ordered by catalogue size.
func (s *Store) FindArtists(ctx context.Context, q ArtistQuery) ([]*Artist, error) {
	ctx = ensureContext(ctx)
	var (
		where string
		arg   string
	)
	switch {
	case strings.TrimSpace(q.Name) != "":
		where, arg = "a.name = ?", strings.TrimSpace(q.Name)
	case strings.TrimSpace(q.NormalizedName) != "":
		where, arg = "a.normalized_name = ?", strings.TrimSpace(q.NormalizedName)
	case strings.TrimSpace(q.Search) != "":
		where, arg = `a.normalized_name LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.TrimSpace(q.Search))+"%"
	default:
		return nil, fmt.Errorf("%w: name, normalized_name or search required", ErrInvalid)
	}

	rows, err := s.db.QueryContext(ctx,
		artistSelect+" WHERE "+where+" ORDER BY artworks_count DESC, a.name ASC LIMIT ?",
		arg, clampLimit(q.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("find artists: %w", err)
	}
	defer rows.Close()

	var out []*Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		out = append(out, artist)
	}
	return out, rows.Err()
}

// ArtistByID returns the artist with the given identifier.
func (s *Store) ArtistByID(ctx context.Context, id string) (*Artist, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, artistSelect+" WHERE a.id = ?", strings.TrimSpace(id))
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return artist, nil
}

// InsertArtist stores a new artist. Names are unique.
func (s *Store) InsertArtist(ctx context.Context, in NewArtist) (*Artist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: artist name required", ErrInvalid)
	}
	if strings.TrimSpace(in.NormalizedName) == "" {
		in.NormalizedName = fingerprint.Normalize(in.Name)
	}
	id := uuid.NewString()
	now := s.timestamp()
	_, err := s.execWithRetry(ctx,
		"INSERT INTO artists (id, name, normalized_name, introduction, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, in.Name, strings.TrimSpace(in.NormalizedName), strings.TrimSpace(in.Introduction), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert artist: %w", err)
	}
	return s.ArtistByID(ctx, id)
}

// UpdateArtist applies a partial update. A non-empty introduction is never
// replaced; the first writer wins.
func (s *Store) UpdateArtist(ctx context.Context, id string, patch ArtistPatch) (*Artist, error) {
	res, err := s.execWithRetry(ctx, `UPDATE artists SET
    normalized_name = COALESCE(?, normalized_name),
    introduction = CASE WHEN TRIM(introduction) = '' THEN COALESCE(?, introduction) ELSE introduction END,
    updated_at = ?
WHERE id = ?`,
		nullable(patch.NormalizedName), nullable(patch.Introduction), s.timestamp(), strings.TrimSpace(id),
	)
	if err != nil {
		return nil, fmt.Errorf("update artist: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.ArtistByID(ctx, id)
}
