package resolver_test

import (
	"context"
	"sync"

	"artcache/internal/fingerprint"
	"artcache/internal/remote"
)

type introCall struct {
	name         string
	introduction string
}

// fakeStore is an in-memory stand-in for the remote client.
type fakeStore struct {
	mu         sync.Mutex
	artworks   map[string]remote.ArtworkRecord
	artists    map[string]remote.ArtistRecord
	near       []remote.ArtworkRecord
	upsertErr  error
	introBlock chan struct{}

	artworkLookups int
	artistLookups  int
	upserts        []remote.ArtworkRecord
	increments     []string
	introUpserts   []introCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		artworks: make(map[string]remote.ArtworkRecord),
		artists:  make(map[string]remote.ArtistRecord),
	}
}

func (f *fakeStore) addArtwork(rec remote.ArtworkRecord) remote.ArtworkRecord {
	fp := fingerprint.Compute(rec.Title, rec.Artist, rec.Year)
	rec.CombinedHash = fp.CombinedHash
	rec.NormalizedTitle = fp.NormalizedTitle
	rec.NormalizedArtist = fp.NormalizedArtist
	f.mu.Lock()
	f.artworks[rec.CombinedHash] = rec
	f.mu.Unlock()
	return rec
}

func (f *fakeStore) addArtist(name, introduction string) {
	f.mu.Lock()
	f.artists[fingerprint.Normalize(name)] = remote.ArtistRecord{
		ID:             "artist-" + fingerprint.Normalize(name),
		Name:           name,
		NormalizedName: fingerprint.Normalize(name),
		Introduction:   introduction,
	}
	f.mu.Unlock()
}

func (f *fakeStore) FindArtwork(_ context.Context, fp fingerprint.Fingerprint) (*remote.ArtworkRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artworkLookups++
	rec, ok := f.artworks[fp.CombinedHash]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func (f *fakeStore) SearchNear(context.Context, string, string) []remote.ArtworkRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.ArtworkRecord(nil), f.near...)
}

func (f *fakeStore) UpsertArtwork(_ context.Context, rec remote.ArtworkRecord) (*remote.ArtworkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, rec)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	rec.ID = "art-" + rec.CombinedHash[:8]
	f.artworks[rec.CombinedHash] = rec
	return &rec, nil
}

func (f *fakeStore) IncrementViewCount(id string) {
	f.mu.Lock()
	f.increments = append(f.increments, id)
	f.mu.Unlock()
}

func (f *fakeStore) FindArtist(_ context.Context, name string) (*remote.ArtistRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artistLookups++
	rec, ok := f.artists[fingerprint.Normalize(name)]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func (f *fakeStore) UpsertArtistIntroduction(ctx context.Context, name, introduction string) error {
	f.mu.Lock()
	block := f.introBlock
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.introUpserts = append(f.introUpserts, introCall{name: name, introduction: introduction})
	return nil
}

func (f *fakeStore) snapshot() (upserts []remote.ArtworkRecord, increments []string, intros []introCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.ArtworkRecord(nil), f.upserts...),
		append([]string(nil), f.increments...),
		append([]introCall(nil), f.introUpserts...)
}
