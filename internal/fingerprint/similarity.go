package fingerprint

import (
	"math"

	"github.com/hbollon/go-edlib"
)

const (
	// DefaultThreshold is the similarity at or above which two fingerprints
	// are treated as the same artwork.
	DefaultThreshold = 0.85

	defaultArtistWeight = 0.6
)

// Metric scores two normalized strings in [0,1]. Implementations must be
// symmetric and return 1 for equal inputs.
type Metric interface {
	Similarity(a, b string) float64
}

// MetricFunc adapts a plain function to Metric.
type MetricFunc func(a, b string) float64

// Similarity implements Metric.
func (f MetricFunc) Similarity(a, b string) float64 { return f(a, b) }

type edlibMetric struct {
	algorithm edlib.Algorithm
}

var (
	// Levenshtein scores by edit distance relative to the longer string.
	Levenshtein Metric = edlibMetric{algorithm: edlib.Levenshtein}
	// JaroWinkler favours strings sharing a common prefix.
	JaroWinkler Metric = edlibMetric{algorithm: edlib.JaroWinkler}
)

// MetricByName maps a configured metric name to its Metric.
func MetricByName(name string) (Metric, bool) {
	switch name {
	case "levenshtein":
		return Levenshtein, true
	case "jaro-winkler":
		return JaroWinkler, true
	default:
		return nil, false
	}
}

func (m edlibMetric) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	// Some algorithms match greedily; a fixed argument order keeps them symmetric.
	if a > b {
		a, b = b, a
	}
	score, err := edlib.StringsSimilarity(a, b, m.algorithm)
	if err != nil {
		return 0
	}
	return clamp(float64(score))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Generator computes fingerprints and compares them using a configurable
// metric and threshold.
type Generator struct {
	metric       Metric
	threshold    float64
	artistWeight float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithMetric swaps the edit-distance algorithm.
func WithMetric(metric Metric) Option {
	return func(g *Generator) {
		if metric != nil {
			g.metric = metric
		}
	}
}

// WithThreshold overrides the same-entity threshold (defaults to 0.85).
func WithThreshold(threshold float64) Option {
	return func(g *Generator) {
		if threshold > 0 && threshold <= 1 {
			g.threshold = threshold
		}
	}
}

// WithArtistWeight overrides how much the artist score contributes to
// Similarity. The title receives the remainder.
func WithArtistWeight(weight float64) Option {
	return func(g *Generator) {
		if weight >= 0 && weight <= 1 {
			g.artistWeight = weight
		}
	}
}

// New constructs a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		metric:       Levenshtein,
		threshold:    DefaultThreshold,
		artistWeight: defaultArtistWeight,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured same-entity threshold.
func (g *Generator) Threshold() float64 {
	return g.threshold
}

// Fingerprint computes the identity for the supplied values.
func (g *Generator) Fingerprint(title, artist, year string) Fingerprint {
	return Compute(title, artist, year)
}

// Similarity scores two fingerprints in [0,1].
func (g *Generator) Similarity(a, b Fingerprint) float64 {
	if a.CombinedHash != "" && a.CombinedHash == b.CombinedHash {
		return 1
	}
	artist := g.metric.Similarity(a.NormalizedArtist, b.NormalizedArtist)
	title := g.metric.Similarity(a.NormalizedTitle, b.NormalizedTitle)
	return clamp(g.artistWeight*artist + (1-g.artistWeight)*title)
}

// Matches reports whether two fingerprints identify the same artwork. The
// exact path compares hashes only; the fuzzy path also accepts a similarity
// at or above the threshold.
func (g *Generator) Matches(a, b Fingerprint, fuzzy bool) bool {
	if a.CombinedHash == b.CombinedHash {
		return true
	}
	if !fuzzy {
		return false
	}
	return g.Similarity(a, b) >= g.threshold
}

// NameSimilarity scores two free-text names after normalization.
func (g *Generator) NameSimilarity(a, b string) float64 {
	return g.metric.Similarity(Normalize(a), Normalize(b))
}

// SameName reports whether two names clear the same-entity threshold.
func (g *Generator) SameName(a, b string) bool {
	return g.NameSimilarity(a, b) >= g.threshold
}
