package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"artcache/internal/fingerprint"
	"artcache/internal/logging"
)

// FindArtwork looks up the record whose combined hash equals fp's. Any
// failure, after retries, is logged and reported as a miss.
func (c *Client) FindArtwork(ctx context.Context, fp fingerprint.Fingerprint) (*ArtworkRecord, bool) {
	if fp.IsZero() {
		return nil, false
	}
	rec, err := c.getArtwork(ctx, fp.CombinedHash, true)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.WarnWithContext(c.logger, "artwork lookup failed; treating as uncached", "artwork_lookup_failed",
				logging.String(logging.FieldCombinedHash, fp.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the shared store url and api key"),
				logging.String(logging.FieldImpact, "narration will be regenerated instead of reused"),
			)
		}
		return nil, false
	}
	return rec, true
}

// SearchNear returns a bounded pool of records whose normalized title or
// artist shares a prefix with the supplied values. Failures yield an empty
// pool.
func (c *Client) SearchNear(ctx context.Context, title, artist string) []ArtworkRecord {
	titleKey := firstWord(fingerprint.Normalize(title))
	artistKey := firstWord(fingerprint.Normalize(artist))
	if titleKey == "" && artistKey == "" {
		return nil
	}
	query := url.Values{}
	if titleKey != "" {
		query.Set("title", titleKey)
	}
	if artistKey != "" {
		query.Set("artist", artistKey)
	}
	query.Set("limit", strconv.Itoa(c.searchLimit))

	var records []ArtworkRecord
	err := c.sendWithRetry(ctx, request{
		op:     "remote search artworks",
		method: http.MethodGet,
		path:   "/v1/artworks",
		query:  query,
		out:    &records,
	}, c.readTimeout)
	if err != nil {
		logging.WarnWithContext(c.logger, "artwork search failed; skipping duplicate check", "artwork_search_failed",
			logging.String(logging.FieldTitle, title),
			logging.String(logging.FieldArtist, artist),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a near-duplicate record may be created"),
		)
		return nil
	}
	if len(records) > c.searchLimit {
		records = records[:c.searchLimit]
	}
	return records
}

// UpsertArtwork stores rec keyed by its combined hash and returns the stored
// record. An existing record only has its display and content fields
// updated. A concurrent insert of the same hash is absorbed by re-querying
// and patching the winner.
func (c *Client) UpsertArtwork(ctx context.Context, rec ArtworkRecord) (*ArtworkRecord, error) {
	const op = "remote upsert artwork"
	if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.Artist) == "" {
		return nil, &Error{Op: op, Kind: KindBadRequest, Err: errors.New("title or artist required")}
	}
	rec = withIdentity(rec)

	existing, err := c.getArtwork(ctx, rec.CombinedHash, false)
	switch {
	case err == nil:
		return c.patchArtwork(ctx, op, existing.ID, rec)
	case errors.Is(err, ErrUnauthorized):
		return nil, err
	}

	var created ArtworkRecord
	err = c.sendWithRetry(ctx, request{
		op:     "remote insert artwork",
		method: http.MethodPost,
		path:   "/v1/artworks",
		body:   newArtworkInsert(rec),
		out:    &created,
	}, c.writeTimeout)
	if err == nil {
		c.logger.Debug("artwork record created",
			logging.String(logging.FieldArtworkID, created.ID),
			logging.String(logging.FieldCombinedHash, shortHash(created.CombinedHash)),
		)
		return &created, nil
	}
	if !errors.Is(err, ErrConflict) {
		return nil, saveFailed(op, err)
	}

	c.logger.Debug("artwork insert conflicted; updating existing record",
		logging.String(logging.FieldCombinedHash, shortHash(rec.CombinedHash)),
	)
	existing, err = c.getArtwork(ctx, rec.CombinedHash, true)
	if err != nil {
		return nil, saveFailed(op, err)
	}
	return c.patchArtwork(ctx, op, existing.ID, rec)
}

// IncrementViewCount bumps the view counter of the record in the
// background. Failures are logged at debug and otherwise ignored.
func (c *Client) IncrementViewCount(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	c.inflight.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		defer cancel()
		err := c.send(ctx, request{
			op:     "remote increment views",
			method: http.MethodPost,
			path:   "/v1/artworks/" + url.PathEscape(id) + "/views",
		})
		if err != nil {
			c.logger.Debug("view count increment failed",
				logging.String(logging.FieldArtworkID, id),
				logging.Error(err),
			)
		}
	})
}

func (c *Client) getArtwork(ctx context.Context, hash string, retry bool) (*ArtworkRecord, error) {
	const op = "remote find artwork"
	var rec ArtworkRecord
	req := request{
		op:     op,
		method: http.MethodGet,
		path:   "/v1/artworks/" + url.PathEscape(hash),
		out:    &rec,
	}
	if err := c.read(ctx, req, retry); err != nil {
		return nil, err
	}
	if rec.ID == "" || rec.CombinedHash != hash {
		return nil, &Error{Op: op, Kind: KindInvalidResponse, Err: fmt.Errorf("record does not match hash %s", shortHash(hash))}
	}
	return &rec, nil
}

func (c *Client) patchArtwork(ctx context.Context, op, id string, rec ArtworkRecord) (*ArtworkRecord, error) {
	var updated ArtworkRecord
	err := c.sendWithRetry(ctx, request{
		op:     "remote update artwork",
		method: http.MethodPatch,
		path:   "/v1/artworks/" + url.PathEscape(id),
		body:   newArtworkPatch(rec),
		out:    &updated,
	}, c.writeTimeout)
	if err != nil {
		return nil, saveFailed(op, err)
	}
	return &updated, nil
}

// withIdentity fills the hash and normalized fields from title and artist.
func withIdentity(rec ArtworkRecord) ArtworkRecord {
	fp := fingerprint.Compute(rec.Title, rec.Artist, rec.Year)
	if rec.CombinedHash == "" {
		rec.CombinedHash = fp.CombinedHash
	}
	rec.NormalizedTitle = fp.NormalizedTitle
	rec.NormalizedArtist = fp.NormalizedArtist
	return rec
}

func firstWord(value string) string {
	word, _, _ := strings.Cut(value, " ")
	return word
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
