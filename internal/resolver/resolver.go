package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"artcache/internal/fingerprint"
	"artcache/internal/localcache"
	"artcache/internal/logging"
	"artcache/internal/remote"
)

const (
	// DefaultConfidenceGate is the minimum candidate confidence that is
	// persisted to the shared store.
	DefaultConfidenceGate = 0.8

	backgroundTimeout = 30 * time.Second
)

// Store is the shared store surface the resolver depends on.
type Store interface {
	FindArtwork(ctx context.Context, fp fingerprint.Fingerprint) (*remote.ArtworkRecord, bool)
	SearchNear(ctx context.Context, title, artist string) []remote.ArtworkRecord
	UpsertArtwork(ctx context.Context, rec remote.ArtworkRecord) (*remote.ArtworkRecord, error)
	IncrementViewCount(id string)
	FindArtist(ctx context.Context, name string) (*remote.ArtistRecord, bool)
	UpsertArtistIntroduction(ctx context.Context, name, introduction string) error
}

// drainer is implemented by stores that run their own detached requests.
type drainer interface {
	Wait(ctx context.Context) error
}

var _ Store = (*remote.Client)(nil)

// Resolver orchestrates the local cache and the shared store.
type Resolver struct {
	store          Store
	cache          *localcache.Cache
	generator      *fingerprint.Generator
	logger         *slog.Logger
	confidenceGate float64

	background sync.WaitGroup
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache sets the local recent cache. Without one an in-memory cache
// with default capacity and TTL is used.
func WithCache(cache *localcache.Cache) Option {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithGenerator overrides the fingerprint generator.
func WithGenerator(generator *fingerprint.Generator) Option {
	return func(r *Resolver) {
		if generator != nil {
			r.generator = generator
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfidenceGate overrides the persistence gate (defaults to 0.8).
func WithConfidenceGate(gate float64) Option {
	return func(r *Resolver) {
		if gate > 0 && gate <= 1 {
			r.confidenceGate = gate
		}
	}
}

// New constructs a Resolver over store.
func New(store Store, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("resolver: store required")
	}
	r := &Resolver{
		store:          store,
		confidenceGate: DefaultConfidenceGate,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "resolver")
	if r.generator == nil {
		r.generator = fingerprint.New()
	}
	if r.cache == nil {
		r.cache = localcache.New("", r.logger)
	}
	return r, nil
}

// ResolveNarration returns cached or freshly stored content for req, or nil
// when nothing is cached and req carries no candidate narration.
func (r *Resolver) ResolveNarration(ctx context.Context, req Request) *Resolution {
	req = req.normalized()
	if req.Title == "" && req.Artist == "" {
		return nil
	}
	fp := r.generator.Fingerprint(req.Title, req.Artist, req.Year)
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldCombinedHash, fp.String()),
	)

	var (
		res    *Resolution
		artist artistOutcome
	)
	// Only content that clears the gate may write an introduction back.
	backfill := req.Narration != "" && r.passesGate(req.Confidence)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		artist = r.resolveArtist(gctx, req.Artist, req.ArtistIntroduction, backfill)
		return nil
	})
	g.Go(func() error {
		res = r.resolveArtwork(gctx, req, fp, logger)
		return nil
	})
	_ = g.Wait()

	if res == nil {
		return nil
	}
	res.ArtistIntroduction = artist.introduction
	if res.Source == SourceCreated && !artist.exists && !artist.backfilling {
		r.ensureArtist(ctx, req.Artist)
	}
	return res
}

// ResolveArtistIntroduction returns the introduction to show for the
// artist. A non-empty stored introduction wins over candidate. Otherwise
// candidate is returned and written back in the background.
func (r *Resolver) ResolveArtistIntroduction(ctx context.Context, name, candidate string) (string, bool) {
	outcome := r.resolveArtist(ctx, strings.TrimSpace(name), strings.TrimSpace(candidate), true)
	return outcome.introduction, outcome.introduction != ""
}

type artistOutcome struct {
	introduction string
	exists       bool
	backfilling  bool
}

func (r *Resolver) resolveArtist(ctx context.Context, name, candidate string, backfill bool) artistOutcome {
	if name == "" {
		return artistOutcome{introduction: candidate}
	}
	rec, found := r.store.FindArtist(ctx, name)
	if found && strings.TrimSpace(rec.Introduction) != "" {
		return artistOutcome{introduction: rec.Introduction, exists: true}
	}
	if candidate == "" || !backfill {
		return artistOutcome{introduction: candidate, exists: found}
	}

	target := name
	if found && rec.Name != "" {
		target = rec.Name
	}
	r.goBackground(ctx, func(bctx context.Context) {
		if err := r.store.UpsertArtistIntroduction(bctx, target, candidate); err != nil {
			logging.WarnWithContext(r.logger, "artist introduction backfill failed", "artist_backfill_failed",
				logging.String(logging.FieldArtist, target),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the introduction will be regenerated next time"),
			)
		}
	})
	return artistOutcome{introduction: candidate, exists: found, backfilling: true}
}

func (r *Resolver) resolveArtwork(ctx context.Context, req Request, fp fingerprint.Fingerprint, logger *slog.Logger) *Resolution {
	if entry, ok := r.cache.Lookup(fp.CombinedHash); ok {
		logger.Debug("local cache hit")
		return &Resolution{Record: entry.Record, Source: SourceLocal}
	}

	if rec, ok := r.store.FindArtwork(ctx, fp); ok {
		logger.Debug("shared store hit", logging.String(logging.FieldArtworkID, rec.ID))
		r.store.IncrementViewCount(rec.ID)
		r.remember(fp, *rec, logger)
		return &Resolution{Record: *rec, Source: SourceRemote}
	}

	if req.Narration == "" {
		return nil
	}
	candidate := req.record(fp)
	if !r.passesGate(req.Confidence) {
		logger.Debug("candidate below confidence gate; not persisted",
			logging.Float64("gate", r.confidenceGate),
		)
		return &Resolution{Record: candidate, Source: SourceCandidate}
	}

	if canonical, score, ok := r.nearestDuplicate(ctx, req, fp); ok {
		logger.Info("reusing near-duplicate artwork",
			logging.String(logging.FieldArtworkID, canonical.ID),
			logging.String("canonical_title", canonical.Title),
			logging.Float64("similarity", score),
		)
		r.store.IncrementViewCount(canonical.ID)
		r.remember(fp, canonical, logger)
		return &Resolution{Record: canonical, Source: SourceCanonical}
	}

	saved, err := r.store.UpsertArtwork(ctx, candidate)
	if err != nil {
		logging.WarnWithContext(logger, "failed to persist artwork narration", "artwork_save_failed",
			logging.String(logging.FieldTitle, req.Title),
			logging.String(logging.FieldArtist, req.Artist),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
			logging.String(logging.FieldImpact, "the narration is shown but will be regenerated next time"),
		)
		return &Resolution{Record: candidate, Source: SourceCandidate, PersistErr: err}
	}
	logger.Info("stored new artwork narration", logging.String(logging.FieldArtworkID, saved.ID))
	r.remember(fp, *saved, logger)
	return &Resolution{Record: *saved, Source: SourceCreated}
}

func (r *Resolver) passesGate(confidence *float64) bool {
	return confidence != nil && *confidence >= r.confidenceGate
}

// nearestDuplicate returns the best fuzzy match from the bounded search pool.
func (r *Resolver) nearestDuplicate(ctx context.Context, req Request, fp fingerprint.Fingerprint) (remote.ArtworkRecord, float64, bool) {
	var (
		best      remote.ArtworkRecord
		bestScore float64
		found     bool
	)
	for _, candidate := range r.store.SearchNear(ctx, req.Title, req.Artist) {
		other := candidateFingerprint(candidate)
		if !r.generator.Matches(fp, other, true) {
			continue
		}
		score := r.generator.Similarity(fp, other)
		if !found || score > bestScore {
			best, bestScore, found = candidate, score, true
		}
	}
	return best, bestScore, found
}

func candidateFingerprint(rec remote.ArtworkRecord) fingerprint.Fingerprint {
	if rec.NormalizedTitle == "" && rec.NormalizedArtist == "" {
		return fingerprint.Compute(rec.Title, rec.Artist, rec.Year)
	}
	return fingerprint.Fingerprint{
		NormalizedTitle:  rec.NormalizedTitle,
		NormalizedArtist: rec.NormalizedArtist,
		Year:             rec.Year,
		CombinedHash:     fingerprint.Hash(rec.NormalizedTitle, rec.NormalizedArtist),
	}
}

func (r *Resolver) remember(fp fingerprint.Fingerprint, rec remote.ArtworkRecord, logger *slog.Logger) {
	if err := r.cache.Store(fp.CombinedHash, rec); err != nil {
		logging.WarnWithContext(logger, "failed to write local cache", "localcache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next view will query the shared store"),
		)
	}
}

// ensureArtist creates the artist record for a newly stored artwork.
func (r *Resolver) ensureArtist(ctx context.Context, name string) {
	if name == "" {
		return
	}
	r.goBackground(ctx, func(bctx context.Context) {
		if err := r.store.UpsertArtistIntroduction(bctx, name, ""); err != nil {
			r.logger.Debug("artist record ensure failed",
				logging.String(logging.FieldArtist, name),
				logging.Error(err),
			)
		}
	})
}

// goBackground runs fn detached from the caller's cancellation.
func (r *Resolver) goBackground(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	r.background.Go(func() {
		bctx, cancel := context.WithTimeout(detached, backgroundTimeout)
		defer cancel()
		fn(bctx)
	})
}

// Close waits for background writes, including the store's own detached
// requests, until ctx is done.
func (r *Resolver) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d, ok := r.store.(drainer); ok {
		return d.Wait(ctx)
	}
	return nil
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		return "check store.api_key"
	case errors.Is(err, remote.ErrNetwork):
		return "check connectivity to store.base_url"
	default:
		return "check the shared store logs"
	}
}
