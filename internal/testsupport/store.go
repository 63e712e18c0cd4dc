package testsupport

import (
	"context"
	"net/http/httptest"
	"testing"

	"artcache/internal/config"
	"artcache/internal/logging"
	"artcache/internal/sharedstore"
)

// MustOpenStore opens a sharedstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sharedstore.Store {
	t.Helper()

	store, err := sharedstore.Open(cfg.Server.DBPath)
	if err != nil {
		t.Fatalf("sharedstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewStoreServer serves store over httptest using the config's API key.
func NewStoreServer(t testing.TB, cfg *config.Config, store *sharedstore.Store) *httptest.Server {
	t.Helper()

	handler, err := sharedstore.NewHandler(store, cfg.Store.APIKey, logging.NewNop())
	if err != nil {
		t.Fatalf("sharedstore.NewHandler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// InsertArtwork stores an artwork directly, bypassing HTTP.
func InsertArtwork(t testing.TB, store *sharedstore.Store, title, artist, narration string) *sharedstore.Artwork {
	t.Helper()

	art, err := store.InsertArtwork(context.Background(), sharedstore.NewArtwork{
		Title:      title,
		Artist:     artist,
		Narration:  narration,
		Confidence: 0.9,
		Recognized: true,
	})
	if err != nil {
		t.Fatalf("store.InsertArtwork: %v", err)
	}
	return art
}

// InsertArtist stores an artist directly, bypassing HTTP.
func InsertArtist(t testing.TB, store *sharedstore.Store, name, introduction string) *sharedstore.Artist {
	t.Helper()

	artist, err := store.InsertArtist(context.Background(), sharedstore.NewArtist{
		Name:         name,
		Introduction: introduction,
	})
	if err != nil {
		t.Fatalf("store.InsertArtist: %v", err)
	}
	return artist
}
