// Package caveotest provides test utilities for caveo.
package caveotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/caveo"
	"github.com/zoobzio/zyn"
)

// ScriptedProvider implements caveo.Provider without a live model. It
// routes calls by inspecting the last message: extract synapse prompts
// carry the task description, generation calls carry the rendered user
// content.
type ScriptedProvider struct {
	mu sync.Mutex

	// RouteJSON is returned for risk classification extract calls.
	RouteJSON string

	// ValidationJSON is returned for fact validation extract calls.
	ValidationJSON string

	// Answers are sequential generation responses; the last one repeats.
	Answers []string

	// FailClassify and FailGenerate force the corresponding call kind
	// to return an error.
	FailClassify bool
	FailGenerate bool

	classifyCalls int
	generateCalls int
}

// Call implements caveo.Provider.
func (m *ScriptedProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1]

	if strings.Contains(last.Content, "risk classification") {
		m.classifyCalls++
		if m.FailClassify {
			return nil, fmt.Errorf("classifier unreachable")
		}
		return response(m.RouteJSON), nil
	}

	if strings.Contains(last.Content, "validation of the extracted facts") {
		return response(m.ValidationJSON), nil
	}

	m.generateCalls++
	if m.FailGenerate {
		return nil, fmt.Errorf("generation unavailable")
	}

	answer := "scripted answer"
	if len(m.Answers) > 0 {
		idx := m.generateCalls - 1
		if idx >= len(m.Answers) {
			idx = len(m.Answers) - 1
		}
		answer = m.Answers[idx]
	}

	return response(answer), nil
}

// Name implements caveo.Provider.
func (m *ScriptedProvider) Name() string {
	return "scripted"
}

// GenerateCalls reports how many generation calls the provider served.
func (m *ScriptedProvider) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

func response(content string) *zyn.ProviderResponse {
	return &zyn.ProviderResponse{
		Content: content,
		Usage: zyn.TokenUsage{
			Prompt:     10,
			Completion: 20,
			Total:      30,
		},
	}
}

// StaticEmbedder implements caveo.Embedder with fixed vectors per exact
// text. Texts without an entry receive the Fallback vector.
type StaticEmbedder struct {
	Vectors  map[string][]float32
	Fallback []float32
	Err      error
}

// Embed implements caveo.Embedder.
func (m *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	return m.Fallback, nil
}

// Dimensions implements caveo.Embedder.
func (m *StaticEmbedder) Dimensions() int {
	return len(m.Fallback)
}

// StubVerifier implements caveo.Verifier with a fixed result.
type StubVerifier struct {
	Result caveo.VerificationResult
}

// Verify implements caveo.Verifier.
func (m *StubVerifier) Verify(_ context.Context, _ string) caveo.VerificationResult {
	return m.Result
}

// MemoryArchive implements caveo.Archive in memory, without a database.
type MemoryArchive struct {
	mu        sync.Mutex
	exchanges []*caveo.Exchange
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

// AppendExchange persists a completed exchange.
func (m *MemoryArchive) AppendExchange(_ context.Context, exchange *caveo.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, exchange)
	return nil
}

// RecentTurns returns the last turns of a session, oldest first.
func (m *MemoryArchive) RecentTurns(_ context.Context, sessionID string, limit int) ([]caveo.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var turns []caveo.Turn
	for _, ex := range m.exchanges {
		if ex.SessionID != sessionID {
			continue
		}
		turns = append(turns, caveo.Turn{Role: "user", Content: ex.Query})
		if ex.Answer != "" {
			turns = append(turns, caveo.Turn{Role: "assistant", Content: ex.Answer})
		}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

// SearchExchanges returns archived exchanges up to the limit. Semantic
// ordering is not simulated.
func (m *MemoryArchive) SearchExchanges(_ context.Context, _ caveo.Vector, limit int) ([]*caveo.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.exchanges) > limit {
		return m.exchanges[:limit], nil
	}
	return m.exchanges, nil
}

// Exchanges returns a snapshot of everything archived so far.
func (m *MemoryArchive) Exchanges() []*caveo.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*caveo.Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// Verify MemoryArchive implements caveo.Archive.
var _ caveo.Archive = (*MemoryArchive)(nil)

// NewTestPipeline creates a pipeline over scripted collaborators for
// testing. The provider defaults to a permissive classification.
func NewTestPipeline(t *testing.T, cfg caveo.PipelineConfig) *caveo.Pipeline {
	t.Helper()

	if cfg.Provider == nil {
		cfg.Provider = &ScriptedProvider{
			RouteJSON: `{"route": "LOW_STAKES", "confidence": 0.9, "signals": []}`,
		}
	}

	pipeline, err := caveo.NewPipeline(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create test pipeline: %v", err)
	}
	return pipeline
}

// RequireAnswered asserts that the envelope carries an answer.
func RequireAnswered(t *testing.T, envelope caveo.ResponseEnvelope) {
	t.Helper()
	if envelope.Refused() {
		t.Fatalf("expected an answer, got refusal: %s", envelope.Reason)
	}
	if envelope.Answer == "" {
		t.Fatal("expected a non-empty answer")
	}
}

// RequireRefused asserts that the envelope is a well-formed refusal.
func RequireRefused(t *testing.T, envelope caveo.ResponseEnvelope) {
	t.Helper()
	if !envelope.Refused() {
		t.Fatalf("expected a refusal, got status %s", envelope.Status)
	}
	if envelope.Answer != "" {
		t.Fatal("refusal envelope must not carry an answer")
	}
	if len(envelope.Needed) == 0 {
		t.Fatal("refusal envelope must state what is needed")
	}
}
