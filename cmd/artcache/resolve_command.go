package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"artcache/internal/remote"
	"artcache/internal/resolver"
)

type resolveOutput struct {
	Found              bool                  `json:"found"`
	Source             string                `json:"source,omitempty"`
	Cached             bool                  `json:"cached"`
	Artwork            *remote.ArtworkRecord `json:"artwork,omitempty"`
	ArtistIntroduction string                `json:"artist_introduction,omitempty"`
	PersistError       string                `json:"persist_error,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		req        resolver.Request
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Look up or store the narration for an artwork",
		Long: `Look up the narration for an artwork in the local cache and the shared store.

Without --narration the command only reads. With --narration and a
--confidence at or above matching.confidence_gate the narration is stored
in the shared store (or an existing near-duplicate is reused) so other
devices can skip generating it.

Example:
  artcache resolve --title "Mona Lisa" --artist "Leonardo da Vinci"
  artcache resolve --title "The Kiss" --artist "Gustav Klimt" \
    --narration "Gold leaf lovers..." --confidence 0.92`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Artist) == "" {
				return fmt.Errorf("--title or --artist is required")
			}
			if cmd.Flags().Changed("confidence") {
				if confidence < 0 || confidence > 1 {
					return fmt.Errorf("--confidence must be between 0 and 1, got %v", confidence)
				}
				req.Confidence = &confidence
			}

			return ctx.withResolver(cmd, "cli-resolve", func(r *resolver.Resolver) error {
				res := r.ResolveNarration(cmd.Context(), req)
				if ctx.JSONMode() {
					return writeJSON(cmd, newResolveOutput(res))
				}
				printResolution(cmd.OutOrStdout(), req, res, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Title, "title", "", "Artwork title")
	flags.StringVar(&req.Artist, "artist", "", "Artist name")
	flags.StringVar(&req.Year, "year", "", "Year or period")
	flags.StringVar(&req.Style, "style", "", "Style or movement")
	flags.StringVar(&req.Medium, "medium", "", "Medium")
	flags.StringVar(&req.Museum, "museum", "", "Museum holding the work")
	flags.StringVar(&req.ImageURL, "image-url", "", "Reference image URL")
	flags.StringVar(&req.Narration, "narration", "", "Freshly generated narration to store")
	flags.StringVar(&req.Summary, "summary", "", "Short summary (defaults to the first sentence of the narration)")
	flags.Float64Var(&confidence, "confidence", 0, "Recognition confidence in [0,1]")
	flags.StringVar(&req.ArtistIntroduction, "artist-intro", "", "Freshly generated artist introduction")
	return cmd
}

func newResolveOutput(res *resolver.Resolution) resolveOutput {
	if res == nil {
		return resolveOutput{}
	}
	out := resolveOutput{
		Found:              true,
		Source:             string(res.Source),
		Cached:             res.Cached(),
		Artwork:            &res.Record,
		ArtistIntroduction: res.ArtistIntroduction,
	}
	if res.PersistErr != nil {
		out.PersistError = res.PersistErr.Error()
	}
	return out
}

func printResolution(out io.Writer, req resolver.Request, res *resolver.Resolution, colorize bool) {
	if res == nil {
		fmt.Fprintf(out, "No cached narration for %s\n", describeArtwork(req.Title, req.Artist, req.Year))
		return
	}
	rec := res.Record
	fmt.Fprintln(out, describeArtwork(rec.Title, rec.Artist, rec.Year))
	fmt.Fprintf(out, "Source: %s\n", sourceLabel(string(res.Source), colorize))
	if rec.ID != "" {
		fmt.Fprintf(out, "Store ID: %s (views: %d)\n", rec.ID, rec.ViewCount)
	}
	if rec.Museum != "" {
		fmt.Fprintf(out, "Museum: %s\n", rec.Museum)
	}
	if rec.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", rec.Summary)
	}
	if rec.Narration != "" {
		fmt.Fprintf(out, "\n%s\n", rec.Narration)
	}
	if res.ArtistIntroduction != "" {
		fmt.Fprintf(out, "\nAbout the artist: %s\n", res.ArtistIntroduction)
	}
	if res.PersistErr != nil {
		fmt.Fprintf(out, "\nWarning: narration was not saved to the shared store: %v\n", res.PersistErr)
	}
}

func describeArtwork(title, artist, year string) string {
	label := strings.TrimSpace(title)
	if label == "" {
		label = "Untitled"
	}
	var details []string
	if artist = strings.TrimSpace(artist); artist != "" {
		details = append(details, artist)
	}
	if year = strings.TrimSpace(year); year != "" {
		details = append(details, year)
	}
	if len(details) == 0 {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(details, ", "))
}
