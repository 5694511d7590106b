package caveo

import (
	"context"
	"errors"
	"testing"
)

// profileTestAnchors is a tiny anchor set with one phrase per axis so
// similarity can be controlled exactly through the embedder.
var profileTestAnchors = map[string][]string{
	"confusion":       {"i am confused"},
	"decision_intent": {"should i choose this"},
}

func TestNewProfilerWarmsAnchors(t *testing.T) {
	embedder := &staticEmbedder{fallback: []float32{1, 0, 0}}

	_, err := NewProfiler(context.Background(), embedder, profileTestAnchors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One embed call per anchor phrase, all at construction time.
	if embedder.calls != 2 {
		t.Errorf("expected 2 warm-up embed calls, got %d", embedder.calls)
	}
}

func TestNewProfilerWarmupFailure(t *testing.T) {
	embedder := &staticEmbedder{err: errors.New("embedding service down")}

	_, err := NewProfiler(context.Background(), embedder, profileTestAnchors)
	if err == nil {
		t.Fatal("expected warm-up error")
	}
}

func TestNewProfilerNoEmbedder(t *testing.T) {
	SetEmbedder(nil)

	_, err := NewProfiler(context.Background(), nil, profileTestAnchors)
	if !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestAnalyzeAxisScores(t *testing.T) {
	embedder := &staticEmbedder{
		vectors: map[string][]float32{
			"i am confused":        {1, 0, 0},
			"should i choose this": {0, 1, 0},
			"what is going on":     {1, 0, 0},
		},
		fallback: []float32{0, 0, 1},
	}

	profiler, err := NewProfiler(context.Background(), embedder, profileTestAnchors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, err := profiler.Analyze(context.Background(), "what is going on")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Query vector matches the confusion anchor exactly and is orthogonal
	// to the decision anchor.
	if profile["confusion"] != 1.0 {
		t.Errorf("confusion: got %f, want 1.0", profile["confusion"])
	}
	if profile["decision_intent"] != 0.0 {
		t.Errorf("decision_intent: got %f, want 0.0", profile["decision_intent"])
	}

	// Novelty is distance from the anchor union: 1 - mean(1.0, 0.0).
	if profile["novelty"] != 0.5 {
		t.Errorf("novelty: got %f, want 0.5", profile["novelty"])
	}
}

func TestAnalyzeScoresInRange(t *testing.T) {
	embedder := &staticEmbedder{
		vectors: map[string][]float32{
			"i am confused":        {1, 1, 0},
			"should i choose this": {-1, 0, 1},
		},
		fallback: []float32{0.3, -0.7, 0.2},
	}

	profiler, err := NewProfiler(context.Background(), embedder, profileTestAnchors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, err := profiler.Analyze(context.Background(), "an unrelated question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for axis, score := range profile {
		if score < 0.0 || score > 1.0 {
			t.Errorf("axis %q out of range: %f", axis, score)
		}
	}
}

func TestAnalyzeEmbedFailure(t *testing.T) {
	embedder := &staticEmbedder{fallback: []float32{1, 0, 0}}

	profiler, err := NewProfiler(context.Background(), embedder, profileTestAnchors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fail only the query embedding, after warm-up succeeded.
	embedder.err = errors.New("embedding service down")

	profile, err := profiler.Analyze(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when query embedding fails")
	}
	if profile != nil {
		t.Error("expected nil profile on failure")
	}
}

func TestAnalyzeDefaultAnchors(t *testing.T) {
	embedder := &staticEmbedder{fallback: []float32{0.5, 0.5, 0.5}}

	profiler, err := NewProfiler(context.Background(), embedder, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, err := profiler.Analyze(context.Background(), "any query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every default axis plus the derived novelty axis must be present.
	for axis := range DefaultAnchors {
		if _, ok := profile[axis]; !ok {
			t.Errorf("missing axis %q", axis)
		}
	}
	if _, ok := profile["novelty"]; !ok {
		t.Error("missing novelty axis")
	}
}
