package sharedstore_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"artcache/internal/fingerprint"
	"artcache/internal/logging"
	"artcache/internal/sharedstore"
	"artcache/internal/testsupport"
)

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandlerRequiresBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewStoreServer(t, cfg, store)

	for _, token := range []string{"", "wrong-key"} {
		resp := doRequest(t, http.MethodGet, server.URL+"/v1/artworks/abc", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodGet, server.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}

func TestHandlerArtworkLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewStoreServer(t, cfg, store)
	key := cfg.Store.APIKey
	fp := fingerprint.Compute("Girl with a Pearl Earring", "Johannes Vermeer", "1665")

	resp := doRequest(t, http.MethodGet, server.URL+"/v1/artworks/"+fp.CombinedHash, key, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("lookup before insert: status = %d, want 404", resp.StatusCode)
	}

	insert := map[string]any{
		"combined_hash":     fp.CombinedHash,
		"normalized_title":  fp.NormalizedTitle,
		"normalized_artist": fp.NormalizedArtist,
		"title":             "Girl with a Pearl Earring",
		"artist":            "Johannes Vermeer",
		"year":              "1665",
		"narration":         "A tronie.",
		"confidence":        0.95,
		"recognized":        true,
	}
	resp = doRequest(t, http.MethodPost, server.URL+"/v1/artworks", key, insert)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("insert status = %d, want 201", resp.StatusCode)
	}
	var created sharedstore.Artwork
	decodeBody(t, resp, &created)
	if created.ID == "" || created.CombinedHash != fp.CombinedHash {
		t.Fatalf("unexpected created artwork: %#v", created)
	}

	resp = doRequest(t, http.MethodPost, server.URL+"/v1/artworks", key, insert)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate insert status = %d, want 409", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPatch, server.URL+"/v1/artworks/"+created.ID, key, map[string]any{
		"museum":     "Mauritshuis",
		"confidence": 0.97,
		"recognized": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	var patched sharedstore.Artwork
	decodeBody(t, resp, &patched)
	if patched.Museum != "Mauritshuis" || patched.Narration != "A tronie." {
		t.Fatalf("unexpected patched artwork: %#v", patched)
	}

	resp = doRequest(t, http.MethodPost, server.URL+"/v1/artworks/"+created.ID+"/views", key, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("views status = %d, want 204", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/artworks?title=girl&artist=johannes&limit=5", key, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var results []sharedstore.Artwork
	decodeBody(t, resp, &results)
	if len(results) != 1 || results[0].ViewCount != 1 {
		t.Fatalf("unexpected search results: %#v", results)
	}
}

func TestHandlerRejectsMalformedRequests(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewStoreServer(t, cfg, store)
	key := cfg.Store.APIKey

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "empty insert", method: http.MethodPost, path: "/v1/artworks", body: map[string]any{}},
		{name: "bad confidence", method: http.MethodPost, path: "/v1/artworks", body: map[string]any{"title": "x", "artist": "y", "confidence": 3}},
		{name: "bad limit", method: http.MethodGet, path: "/v1/artworks?artist=x&limit=abc"},
		{name: "empty artist query", method: http.MethodGet, path: "/v1/artists"},
		{name: "unnamed artist", method: http.MethodPost, path: "/v1/artists", body: map[string]any{"introduction": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, tc.method, server.URL+tc.path, key, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestHandlerArtistRoutes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewStoreServer(t, cfg, store)
	key := cfg.Store.APIKey

	resp := doRequest(t, http.MethodPost, server.URL+"/v1/artists", key, map[string]any{
		"name":            "Hokusai",
		"normalized_name": "hokusai",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("insert status = %d", resp.StatusCode)
	}
	var created sharedstore.Artist
	decodeBody(t, resp, &created)

	resp = doRequest(t, http.MethodPatch, server.URL+"/v1/artists/"+created.ID, key, map[string]any{
		"introduction": "Ukiyo-e master.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/artists?normalized_name=hokusai", key, nil)
	var found []sharedstore.Artist
	decodeBody(t, resp, &found)
	if len(found) != 1 || found[0].Introduction != "Ukiyo-e master." {
		t.Fatalf("unexpected artists: %#v", found)
	}

	resp = doRequest(t, http.MethodGet, server.URL+"/v1/artists?name=Nobody", key, nil)
	body := new(bytes.Buffer)
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.TrimSpace(body.String()) != "[]" {
		t.Fatalf("expected empty array, got %q", body.String())
	}
}

func TestNewHandlerRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := sharedstore.NewHandler(store, " ", logging.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
