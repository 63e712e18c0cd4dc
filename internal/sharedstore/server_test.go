package sharedstore_test

import (
	"context"
	"net/http"
	"testing"

	"artcache/internal/logging"
	"artcache/internal/sharedstore"
	"artcache/internal/testsupport"
)

func TestServerStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv, err := sharedstore.NewServer(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	second, err := sharedstore.NewServer(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		_ = second.Stop()
		t.Fatal("expected second instance to fail while the lock is held")
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewServerRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIKey(""))
	if _, err := sharedstore.NewServer(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
