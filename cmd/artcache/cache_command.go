package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"artcache/internal/localcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local recent cache",
		Long: `Inspect and manage the local recent cache.

The local cache keeps the most recently resolved artworks on this device
so repeat views skip the shared store. Entries expire after
cache.ttl_hours and the oldest are evicted past cache.capacity.

Commands:
  list     - List cached artworks, most recent first
  remove   - Remove an entry by number (see 'list') or fingerprint hash
  prune    - Drop expired entries
  clear    - Remove all cached entries`,
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

type cacheEntryOutput struct {
	Hash     string `json:"hash"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	StoreID  string `json:"store_id,omitempty"`
	CachedAt string `json:"cached_at"`
	Expired  bool   `json:"expired"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached artworks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openLocalCache(ctx)
			if err != nil {
				return err
			}

			entries := cache.List()
			if ctx.JSONMode() {
				out := make([]cacheEntryOutput, 0, len(entries))
				for _, entry := range entries {
					out = append(out, cacheEntryOutput{
						Hash:     entry.Hash,
						Title:    entry.Record.Title,
						Artist:   entry.Record.Artist,
						StoreID:  entry.Record.ID,
						CachedAt: entry.CachedAt.UTC().Format(time.RFC3339),
						Expired:  cache.Expired(entry),
					})
				}
				return writeJSON(cmd, out)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Local cache: empty")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(entries))
			for i, entry := range entries {
				status := "fresh"
				if cache.Expired(entry) {
					status = "expired"
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					entry.Record.Title,
					entry.Record.Artist,
					shortHash(entry.Hash),
					entry.CachedAt.Local().Format(stampLayout),
					status,
				})
			}
			fmt.Fprintf(out, "Local cache: %d entries\n", len(entries))
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Artist", "Hash", "Cached", "Status"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number|hash>",
		Short: "Remove a cache entry by number or hash",
		Long: `Remove a cache entry by its number from 'artcache cache list' or by its
fingerprint hash (a unique prefix is enough).

Example:
  artcache cache list        # Shows numbered list of cached artworks
  artcache cache remove 2    # Removes entry #2 from the list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openLocalCache(ctx)
			if err != nil {
				return err
			}

			entry, err := selectCacheEntry(cache.List(), args[0])
			if err != nil {
				return err
			}
			if err := cache.Remove(entry.Hash); err != nil {
				return fmt.Errorf("remove cache entry: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"removed": true,
					"hash":    entry.Hash,
					"title":   entry.Record.Title,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cache entry %s (%s)\n", shortHash(entry.Hash), entry.Record.Title)
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openLocalCache(ctx)
			if err != nil {
				return err
			}
			removed, err := cache.Prune()
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired cache entries\n", removed)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		Long:  "Delete every locally cached artwork. The cache refills as artworks are resolved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openLocalCache(ctx)
			if err != nil {
				return err
			}

			count := cache.Count()
			if count == 0 {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": 0})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local cache is already empty")
				return nil
			}

			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"removed": count})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", count)
			return nil
		},
	}
}

func openLocalCache(ctx *commandContext) (*localcache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.newCLILogger(cfg, "cli-cache")
	if err != nil {
		return nil, err
	}
	return newLocalCache(cfg, logger), nil
}

// selectCacheEntry resolves a 1-based list number or a hash prefix.
func selectCacheEntry(entries []localcache.Entry, arg string) (localcache.Entry, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return localcache.Entry{}, errors.New("cache entry number or hash is required")
	}
	if n, err := strconv.Atoi(arg); err == nil && len(arg) < 8 {
		if n < 1 {
			return localcache.Entry{}, fmt.Errorf("invalid entry number: %s (must be a positive integer)", arg)
		}
		if n > len(entries) {
			return localcache.Entry{}, fmt.Errorf("cache entry %d out of range (only %d entries exist)", n, len(entries))
		}
		return entries[n-1], nil
	}

	var matches []localcache.Entry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Hash, strings.ToLower(arg)) {
			matches = append(matches, entry)
		}
	}
	switch len(matches) {
	case 0:
		return localcache.Entry{}, fmt.Errorf("no cache entry matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return localcache.Entry{}, fmt.Errorf("hash prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
