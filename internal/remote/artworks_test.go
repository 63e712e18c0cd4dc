package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"

	"artcache/internal/fingerprint"
	"artcache/internal/remote"
	"artcache/internal/testsupport"
)

func TestUpsertArtworkCreatesRecord(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()

	rec, err := fx.client.UpsertArtwork(ctx, remote.ArtworkRecord{
		Title:      "The Persistence of Memory",
		Artist:     "Salvador Dalí",
		Year:       "1931",
		Narration:  "Melting clocks.",
		Confidence: 0.92,
		Recognized: true,
	})
	if err != nil {
		t.Fatalf("UpsertArtwork: %v", err)
	}
	fp := fingerprint.Compute("The Persistence of Memory", "Salvador Dalí", "")
	if rec.ID == "" || rec.CombinedHash != fp.CombinedHash {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.NormalizedArtist != "salvador dali" {
		t.Fatalf("normalized artist = %q", rec.NormalizedArtist)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected store-assigned timestamps")
	}
}

func TestUpsertArtworkPatchesExistingDisplayFields(t *testing.T) {
	recorder := &requestRecorder{}
	fx := newStoreFixture(t, recorder.wrap)
	ctx := context.Background()
	stored := testsupport.InsertArtwork(t, fx.store, "Mona Lisa", "Leonardo da Vinci", "Old narration.")
	if err := fx.store.IncrementViews(ctx, stored.ID); err != nil {
		t.Fatalf("IncrementViews: %v", err)
	}

	rec, err := fx.client.UpsertArtwork(ctx, remote.ArtworkRecord{
		ID:         "client-chosen",
		Title:      "Mona  Lisa.",
		Artist:     "leonardo da vinci",
		Museum:     "Louvre",
		Narration:  "New narration.",
		ViewCount:  99,
		Confidence: 0.9,
		Recognized: true,
	})
	if err != nil {
		t.Fatalf("UpsertArtwork: %v", err)
	}
	if rec.ID != stored.ID {
		t.Fatalf("expected existing record %s, got %s", stored.ID, rec.ID)
	}
	if rec.Narration != "New narration." || rec.Museum != "Louvre" {
		t.Fatalf("display fields not updated: %#v", rec)
	}
	if rec.ViewCount != 1 {
		t.Fatalf("view count must stay store-managed, got %d", rec.ViewCount)
	}

	if posts := recorder.find(http.MethodPost, "/v1/artworks"); len(posts) != 0 {
		t.Fatalf("expected no insert, got %d", len(posts))
	}
	patches := recorder.find(http.MethodPatch, "/v1/artworks/")
	if len(patches) != 1 {
		t.Fatalf("expected one patch, got %d", len(patches))
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(patches[0].Body), &body); err != nil {
		t.Fatalf("decode patch body: %v", err)
	}
	for _, forbidden := range []string{"id", "combined_hash", "view_count", "last_viewed_at", "created_at", "updated_at"} {
		if _, ok := body[forbidden]; ok {
			t.Fatalf("patch body carries store-managed field %q: %s", forbidden, patches[0].Body)
		}
	}
}

func TestUpsertArtworkConflictFallsBackToUpdate(t *testing.T) {
	fx := newStoreFixture(t, conflictOnce("/v1/artworks"))
	ctx := context.Background()

	rec, err := fx.client.UpsertArtwork(ctx, remote.ArtworkRecord{
		Title:      "The Birth of Venus",
		Artist:     "Sandro Botticelli",
		Narration:  "Venus arrives.",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("UpsertArtwork: %v", err)
	}
	if rec.ID == "" || rec.Narration != "Venus arrives." {
		t.Fatalf("unexpected record: %#v", rec)
	}

	again, err := fx.client.UpsertArtwork(ctx, remote.ArtworkRecord{
		Title:      "The Birth of Venus",
		Artist:     "Sandro Botticelli",
		Narration:  "Venus arrives.",
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("second UpsertArtwork: %v", err)
	}
	if again.ID != rec.ID {
		t.Fatalf("expected same record, got %s and %s", rec.ID, again.ID)
	}
	count, err := fx.store.CountArtworks(ctx)
	if err != nil {
		t.Fatalf("CountArtworks: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one record, got %d", count)
	}
}

func TestConcurrentUpsertArtworkKeepsLastWriter(t *testing.T) {
	writes := &writeLog{prefix: "/v1/artworks"}
	fx := newStoreFixture(t, writes.wrap)
	ctx := context.Background()

	narrations := []string{"A gathering of haystacks.", "Stacks of wheat at dusk."}
	var wg sync.WaitGroup
	for _, narration := range narrations {
		wg.Go(func() {
			_, err := fx.client.UpsertArtwork(ctx, remote.ArtworkRecord{
				Title:      "Haystacks",
				Artist:     "Claude Monet",
				Narration:  narration,
				Confidence: 0.9,
			})
			if err != nil {
				t.Errorf("UpsertArtwork(%q): %v", narration, err)
			}
		})
	}
	wg.Wait()

	count, err := fx.store.CountArtworks(ctx)
	if err != nil {
		t.Fatalf("CountArtworks: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one record, got %d", count)
	}
	fp := fingerprint.Compute("Haystacks", "Claude Monet", "")
	stored, err := fx.store.ArtworkByHash(ctx, fp.CombinedHash)
	if err != nil {
		t.Fatalf("ArtworkByHash: %v", err)
	}
	if stored.Narration != narrations[0] && stored.Narration != narrations[1] {
		t.Fatalf("narration %q matches neither writer", stored.Narration)
	}

	bodies := writes.accepted()
	if len(bodies) == 0 {
		t.Fatal("expected accepted writes")
	}
	var last struct {
		Narration string `json:"narration"`
	}
	if err := json.Unmarshal([]byte(bodies[len(bodies)-1]), &last); err != nil {
		t.Fatalf("decode last write: %v", err)
	}
	if stored.Narration != last.Narration {
		t.Fatalf("narration = %q, want last writer %q", stored.Narration, last.Narration)
	}
}

func TestUpsertArtworkReportsSaveFailed(t *testing.T) {
	fp := fingerprint.Compute("Impression, Sunrise", "Claude Monet", "")
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, mockBaseURL+"/v1/artworks/"+fp.CombinedHash,
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"not found"}`))
	mock.RegisterResponder(http.MethodPost, mockBaseURL+"/v1/artworks",
		httpmock.NewStringResponder(http.StatusBadGateway, `bad gateway`))

	client := newClient(t, mockBaseURL, "key", 2, remote.WithHTTPClient(&http.Client{Transport: mock}))
	_, err := client.UpsertArtwork(context.Background(), remote.ArtworkRecord{
		Title:  "Impression, Sunrise",
		Artist: "Claude Monet",
	})
	if !errors.Is(err, remote.ErrSaveFailed) || !errors.Is(err, remote.ErrNetwork) {
		t.Fatalf("expected save failed wrapping network error, got %v", err)
	}
	calls := mock.GetCallCountInfo()
	if got := calls["POST "+mockBaseURL+"/v1/artworks"]; got != 3 {
		t.Fatalf("insert attempts = %d, want 3", got)
	}
}

func TestUpsertArtworkUnauthorized(t *testing.T) {
	fx := newStoreFixture(t, nil)
	client := newClient(t, fx.server.URL, "wrong-key", 2)

	_, err := client.UpsertArtwork(context.Background(), remote.ArtworkRecord{Title: "Olympia", Artist: "Edouard Manet"})
	if !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, remote.ErrSaveFailed) {
		t.Fatal("unauthorized must not be reported as save failed")
	}
	var remoteErr *remote.Error
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected *remote.Error with 401, got %#v", err)
	}
}

func TestUpsertArtworkRequiresIdentity(t *testing.T) {
	fx := newStoreFixture(t, nil)
	if _, err := fx.client.UpsertArtwork(context.Background(), remote.ArtworkRecord{Narration: "x"}); !errors.Is(err, remote.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestIncrementViewCountRunsDetached(t *testing.T) {
	fx := newStoreFixture(t, nil)
	ctx := context.Background()
	stored := testsupport.InsertArtwork(t, fx.store, "American Gothic", "Grant Wood", "")

	fx.client.IncrementViewCount(stored.ID)
	fx.client.IncrementViewCount(stored.ID)
	fx.client.IncrementViewCount("missing")
	fx.client.IncrementViewCount("")
	if err := fx.client.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	fetched, err := fx.store.ArtworkByID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("ArtworkByID: %v", err)
	}
	if fetched.ViewCount != 2 || fetched.LastViewedAt == nil {
		t.Fatalf("unexpected counters: %d / %v", fetched.ViewCount, fetched.LastViewedAt)
	}
}

func TestSearchNearIsBounded(t *testing.T) {
	recorder := &requestRecorder{}
	fx := newStoreFixture(t, recorder.wrap)
	for _, title := range []string{"Sunflowers", "The Starry Night", "Irises", "Wheatfield with Crows", "The Bedroom", "Almond Blossoms", "Café Terrace at Night"} {
		testsupport.InsertArtwork(t, fx.store, title, "Vincent van Gogh", "")
	}

	results := fx.client.SearchNear(context.Background(), "Starry Nite", "Vincent van Gogh")
	if len(results) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(results))
	}
	if results[0].Title != "The Starry Night" {
		t.Fatalf("expected closest candidate first, got %q", results[0].Title)
	}
	searches := recorder.find(http.MethodGet, "/v1/artworks")
	if len(searches) != 1 || !strings.Contains(searches[0].Query, "artist=vincent") || !strings.Contains(searches[0].Query, "title=starry") {
		t.Fatalf("unexpected search request: %#v", searches)
	}

	if got := fx.client.SearchNear(context.Background(), "", "  "); got != nil {
		t.Fatalf("expected no search for empty input, got %#v", got)
	}
}
