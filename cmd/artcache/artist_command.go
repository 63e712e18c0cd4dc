package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"artcache/internal/resolver"
)

func newArtistCommand(ctx *commandContext) *cobra.Command {
	var introduction string

	cmd := &cobra.Command{
		Use:   "artist <name>",
		Short: "Look up or store an artist introduction",
		Long: `Look up the introduction stored for an artist.

A stored introduction always wins. When none is stored and --intro is
given, the supplied introduction is printed and saved to the shared store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("artist name is required")
			}
			return ctx.withResolver(cmd, "cli-artist", func(r *resolver.Resolver) error {
				intro, ok := r.ResolveArtistIntroduction(cmd.Context(), name, introduction)
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"artist":       name,
						"found":        ok,
						"introduction": intro,
					})
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintf(out, "No introduction stored for %s\n", name)
					return nil
				}
				fmt.Fprintf(out, "%s\n\n%s\n", name, intro)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&introduction, "intro", "", "Freshly generated introduction to store when none exists")
	return cmd
}
