package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"artcache/internal/config"
	"artcache/internal/sharedstore"
	"artcache/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *sharedstore.Store
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("ARTCACHE_API_KEY", "")
	t.Setenv("ARTCACHE_STORE_URL", "")

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	server := testsupport.NewStoreServer(t, cfg, store)
	cfg.Store.BaseURL = server.URL

	configPath := filepath.Join(filepath.Dir(cfg.Cache.Path), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, store: store, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[store]\nbase_url = %q\napi_key = %q\nretry_base_delay_ms = 0\n\n[cache]\npath = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Store.BaseURL,
		cfg.Store.APIKey,
		cfg.Cache.Path,
	)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestResolveStoresThenReusesNarration(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"resolve",
		"--title", "The Kiss",
		"--artist", "Gustav Klimt",
		"--year", "1908",
		"--narration", "Two lovers wrapped in gold. Klimt's golden phase at its height.",
		"--confidence", "0.92",
	}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "The Kiss (Gustav Klimt, 1908)")
	requireContains(t, out, "Source: created")
	requireContains(t, out, "Summary: Two lovers wrapped in gold.")

	out, _, err = runCLI(t, []string{"resolve", "--title", "the kiss", "--artist", "GUSTAV KLIMT"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	requireContains(t, out, "Source: local")

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 1 cache entries")

	out, _, err = runCLI(t, []string{"resolve", "--title", "The Kiss", "--artist", "Gustav Klimt"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve after clear: %v", err)
	}
	requireContains(t, out, "Source: remote")

	count, err := env.store.CountArtworks(context.Background())
	if err != nil {
		t.Fatalf("CountArtworks: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored artwork, got %d", count)
	}
}

func TestResolveJSONMiss(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "resolve", "--title", "Nothing Here", "--artist", "Nobody"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var payload resolveOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if payload.Found || payload.Artwork != nil {
		t.Fatalf("expected miss, got %+v", payload)
	}
}

func TestResolveLowConfidenceIsNotStored(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"--json", "resolve",
		"--title", "Untitled",
		"--artist", "Unknown",
		"--narration", "Possibly a landscape.",
		"--confidence", "0.5",
	}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var payload resolveOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !payload.Found || payload.Source != "candidate" || payload.Cached {
		t.Fatalf("expected unpersisted candidate, got %+v", payload)
	}
	count, err := env.store.CountArtworks(context.Background())
	if err != nil {
		t.Fatalf("CountArtworks: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing stored, got %d", count)
	}
}

func TestResolveValidatesFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"resolve"}, env.configPath); err == nil {
		t.Fatal("expected error without title or artist")
	}
	_, _, err := runCLI(t, []string{"resolve", "--title", "X", "--confidence", "1.5"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--confidence") {
		t.Fatalf("expected confidence error, got %v", err)
	}
}

func TestArtistCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.InsertArtist(t, env.store, "Hilma af Klint", "Swedish pioneer of abstraction.")

	out, _, err := runCLI(t, []string{"artist", "hilma af klint", "--intro", "ignored"}, env.configPath)
	if err != nil {
		t.Fatalf("artist: %v", err)
	}
	requireContains(t, out, "Swedish pioneer of abstraction.")

	out, _, err = runCLI(t, []string{"artist", "Unknown Painter"}, env.configPath)
	if err != nil {
		t.Fatalf("artist miss: %v", err)
	}
	requireContains(t, out, "No introduction stored for Unknown Painter")

	if _, _, err := runCLI(t, []string{"artist", "Paula Modersohn-Becker", "--intro", "German expressionist."}, env.configPath); err != nil {
		t.Fatalf("artist backfill: %v", err)
	}
	artists, err := env.store.FindArtists(context.Background(), sharedstore.ArtistQuery{Name: "Paula Modersohn-Becker"})
	if err != nil {
		t.Fatalf("FindArtists: %v", err)
	}
	if len(artists) != 1 || artists[0].Introduction != "German expressionist." {
		t.Fatalf("expected backfilled introduction, got %+v", artists)
	}
}

func TestCacheListAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.InsertArtwork(t, env.store, "Water Lilies", "Claude Monet", "Ponds at Giverny.")
	testsupport.InsertArtwork(t, env.store, "Nighthawks", "Edward Hopper", "A diner at night.")

	for _, args := range [][]string{
		{"resolve", "--title", "Water Lilies", "--artist", "Claude Monet"},
		{"resolve", "--title", "Nighthawks", "--artist", "Edward Hopper"},
	} {
		if _, _, err := runCLI(t, args, env.configPath); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "Local cache: 2 entries")
	requireContains(t, out, "Nighthawks")
	if strings.Index(out, "Nighthawks") > strings.Index(out, "Water Lilies") {
		t.Fatalf("expected most recent entry first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"cache", "remove", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	requireContains(t, out, "(Nighthawks)")

	if _, _, err := runCLI(t, []string{"cache", "remove", "5"}, env.configPath); err == nil {
		t.Fatal("expected out of range error")
	}

	out, _, err = runCLI(t, []string{"--json", "cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list json: %v", err)
	}
	var entries []cacheEntryOutput
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Water Lilies" || entries[0].Expired {
		t.Fatalf("unexpected entries %+v", entries)
	}

	out, _, err = runCLI(t, []string{"cache", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 expired cache entries")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
}
