package caveo

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/zoobzio/capitan"
)

// SemanticProfile maps axis names to similarity scores in [0,1].
// Computed once per query and read-only afterward. A nil profile means
// "no signal"; consumers fall back to safe defaults.
type SemanticProfile map[string]float64

// Profiler converts text into named similarity scores against canonical
// meaning anchors. It makes no policy or depth decisions and issues no
// LLM calls - embeddings only.
//
// The anchor vector cache is populated exactly once during construction
// and never mutated afterward, so a single Profiler is safe for
// concurrent use without locking.
type Profiler struct {
	embedder Embedder
	anchors  map[string][]string

	// Warm-up caches, read-only after NewProfiler returns.
	axisVectors map[string][][]float32
	allVectors  [][]float32
}

// NewProfiler embeds every anchor phrase once and caches the vectors.
// A nil anchors map uses DefaultAnchors. Warm-up failure is returned to
// the caller; a pipeline without a profiler degrades to fallback depth.
func NewProfiler(ctx context.Context, embedder Embedder, anchors map[string][]string) (*Profiler, error) {
	e, err := ResolveEmbedder(ctx, embedder)
	if err != nil {
		return nil, err
	}

	if anchors == nil {
		anchors = DefaultAnchors
	}

	p := &Profiler{
		embedder:    e,
		anchors:     anchors,
		axisVectors: make(map[string][][]float32, len(anchors)),
	}

	// Deterministic warm-up order.
	axes := make([]string, 0, len(anchors))
	for axis := range anchors {
		axes = append(axes, axis)
	}
	sort.Strings(axes)

	for _, axis := range axes {
		phrases := anchors[axis]
		vectors := make([][]float32, 0, len(phrases))
		for _, phrase := range phrases {
			vec, err := e.Embed(ctx, phrase)
			if err != nil {
				return nil, fmt.Errorf("failed to embed anchor %q for axis %q: %w", phrase, axis, err)
			}
			vectors = append(vectors, vec)
		}
		p.axisVectors[axis] = vectors
		p.allVectors = append(p.allVectors, vectors...)
	}

	return p, nil
}

// Analyze embeds the text once and scores it against every axis.
// Each axis score is the maximum cosine similarity to that axis's anchors;
// novelty is derived as distance from the union of all anchors.
func (p *Profiler) Analyze(ctx context.Context, text string) (SemanticProfile, error) {
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		capitan.Error(ctx, ProfileUnavailable,
			FieldError.Field(err),
		)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	profile := make(SemanticProfile, len(p.axisVectors)+1)
	for axis, anchorVecs := range p.axisVectors {
		profile[axis] = round2(clamp01(p.maxSimilarity(vec, anchorVecs)))
	}
	profile["novelty"] = round2(p.noveltyScore(vec))

	return profile, nil
}

// maxSimilarity returns the best cosine similarity against an anchor set.
func (p *Profiler) maxSimilarity(vec []float32, anchors [][]float32) float64 {
	best := 0.0
	for _, a := range anchors {
		if s := Cosine(vec, a); s > best {
			best = s
		}
	}
	return best
}

// noveltyScore measures how far the query sits from every known meaning
// cluster: 1 - mean similarity against the union of all anchors.
func (p *Profiler) noveltyScore(vec []float32) float64 {
	if len(p.allVectors) == 0 {
		return 0.5
	}

	sum := 0.0
	for _, a := range p.allVectors {
		sum += Cosine(vec, a)
	}
	avg := sum / float64(len(p.allVectors))

	return clamp01(1.0 - avg)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
