package sharedstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"artcache/internal/config"
	"artcache/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server runs the store API and enforces single-instance execution.
type Server struct {
	bind     string
	dbPath   string
	apiKey   string
	lockPath string
	lock     *flock.Flock
	logger   *slog.Logger

	store    *Store
	listener net.Listener
	server   *http.Server
	running  atomic.Bool
}

// NewServer prepares a server from the loaded configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if strings.TrimSpace(cfg.Store.APIKey) == "" {
		return nil, errors.New("store.api_key required to serve the shared store")
	}
	lockPath := cfg.Server.LockPath
	if dir := filepath.Dir(lockPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}
	return &Server{
		bind:     cfg.Server.Bind,
		dbPath:   cfg.Server.DBPath,
		apiKey:   cfg.Store.APIKey,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		logger:   logging.NewComponentLogger(logger, "store-server"),
	}, nil
}

// Start acquires the instance lock, opens the database and begins serving.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another artcached instance holds %s", s.lockPath)
	}

	store, err := Open(s.dbPath)
	if err != nil {
		_ = s.lock.Unlock()
		return err
	}
	handler, err := NewHandler(store, s.apiKey, s.logger)
	if err != nil {
		_ = store.Close()
		_ = s.lock.Unlock()
		return err
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		_ = store.Close()
		_ = s.lock.Unlock()
		return fmt.Errorf("store listen: %w", err)
	}

	s.store = store
	s.listener = listener
	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.running.Store(true)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "store server error", "store_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the bind address"),
			)
		}
	}()

	s.logger.Info("store server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("db_path", s.dbPath),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the API down, closes the database and releases the lock.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	var errs []error
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown api: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	s.logger.Info("store server stopped")
	return errors.Join(errs...)
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}
