package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"artcache/internal/fingerprint"
	"artcache/internal/logging"
)

// FindArtist resolves an artist by exact name, then normalized name, then by
// the closest fuzzy candidate that clears the similarity threshold.
func (c *Client) FindArtist(ctx context.Context, name string) (*ArtistRecord, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	rec, err := c.lookupArtist(ctx, name, true)
	if err == nil {
		return rec, true
	}
	if !errors.Is(err, ErrNotFound) {
		c.warnArtistLookup(name, err)
		return nil, false
	}

	candidates, err := c.searchArtists(ctx, name)
	if err != nil {
		c.warnArtistLookup(name, err)
		return nil, false
	}
	var (
		best      *ArtistRecord
		bestScore float64
	)
	for i := range candidates {
		score := c.generator.NameSimilarity(name, candidates[i].Name)
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	if best == nil || bestScore < c.generator.Threshold() {
		return nil, false
	}
	c.logger.Debug("artist matched by similarity",
		logging.String(logging.FieldArtist, name),
		logging.String("matched", best.Name),
		logging.Float64("score", bestScore),
	)
	return best, true
}

// UpsertArtistIntroduction records an introduction for the artist. An
// existing non-empty introduction is never overwritten. An empty
// introduction still ensures the artist record exists.
func (c *Client) UpsertArtistIntroduction(ctx context.Context, name, introduction string) error {
	const op = "remote upsert artist"
	name = strings.TrimSpace(name)
	introduction = strings.TrimSpace(introduction)
	if name == "" {
		return &Error{Op: op, Kind: KindBadRequest, Err: errors.New("artist name required")}
	}
	normalized := fingerprint.Normalize(name)

	existing, err := c.lookupArtist(ctx, name, false)
	switch {
	case err == nil:
		return c.patchArtist(ctx, op, existing, normalized, introduction)
	case errors.Is(err, ErrUnauthorized):
		return err
	}

	err = c.sendWithRetry(ctx, request{
		op:     "remote insert artist",
		method: http.MethodPost,
		path:   "/v1/artists",
		body: artistInsert{
			Name:           name,
			NormalizedName: normalized,
			Introduction:   introduction,
		},
		out: &ArtistRecord{},
	}, c.writeTimeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrConflict) {
		return saveFailed(op, err)
	}

	existing, err = c.lookupArtist(ctx, name, true)
	if err != nil {
		return saveFailed(op, err)
	}
	return c.patchArtist(ctx, op, existing, normalized, introduction)
}

func (c *Client) patchArtist(ctx context.Context, op string, existing *ArtistRecord, normalized, introduction string) error {
	var patch artistPatch
	if existing.NormalizedName != normalized {
		patch.NormalizedName = normalized
	}
	if strings.TrimSpace(existing.Introduction) == "" && introduction != "" {
		patch.Introduction = introduction
	}
	if patch == (artistPatch{}) {
		return nil
	}
	err := c.sendWithRetry(ctx, request{
		op:     "remote update artist",
		method: http.MethodPatch,
		path:   "/v1/artists/" + url.PathEscape(existing.ID),
		body:   patch,
		out:    &ArtistRecord{},
	}, c.writeTimeout)
	if err != nil {
		return saveFailed(op, err)
	}
	return nil
}

// lookupArtist tries the exact name and then the normalized name.
func (c *Client) lookupArtist(ctx context.Context, name string, retry bool) (*ArtistRecord, error) {
	lookups := []url.Values{
		{"name": {name}},
		{"normalized_name": {fingerprint.Normalize(name)}},
	}
	for _, query := range lookups {
		records, err := c.listArtists(ctx, query, retry)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return &records[0], nil
		}
	}
	return nil, &Error{Op: "remote find artist", Kind: KindNotFound}
}

func (c *Client) searchArtists(ctx context.Context, name string) ([]ArtistRecord, error) {
	key := artistSearchKey(fingerprint.Normalize(name))
	if key == "" {
		return nil, nil
	}
	records, err := c.listArtists(ctx, url.Values{
		"search": {key},
		"limit":  {strconv.Itoa(artistCandidateLimit)},
	}, true)
	if err != nil {
		return nil, err
	}
	if len(records) > artistCandidateLimit {
		records = records[:artistCandidateLimit]
	}
	return records, nil
}

func (c *Client) listArtists(ctx context.Context, query url.Values, retry bool) ([]ArtistRecord, error) {
	var records []ArtistRecord
	req := request{
		op:     "remote find artist",
		method: http.MethodGet,
		path:   "/v1/artists",
		query:  query,
		out:    &records,
	}
	if err := c.read(ctx, req, retry); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) warnArtistLookup(name string, err error) {
	logging.WarnWithContext(c.logger, "artist lookup failed; treating as unknown", "artist_lookup_failed",
		logging.String(logging.FieldArtist, name),
		logging.Error(err),
		logging.String(logging.FieldImpact, "the generated introduction is used as-is"),
	)
}

// artistSearchKey is a short prefix of the longest word, so a misspelled
// tail still reaches the right candidates.
func artistSearchKey(normalized string) string {
	var longest []rune
	for word := range strings.FieldsSeq(normalized) {
		if runes := []rune(word); len(runes) > len(longest) {
			longest = runes
		}
	}
	if len(longest) > artistSearchKeyRunes {
		longest = longest[:artistSearchKeyRunes]
	}
	return string(longest)
}
