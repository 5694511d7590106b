package caveo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zoobzio/zyn"
)

// scriptedProvider implements Provider for testing. It routes calls by
// inspecting the last message: extract synapse prompts carry the task
// description, generation calls carry the rendered user content.
type scriptedProvider struct {
	mu sync.Mutex

	// Canned JSON for the risk classification extract call.
	routeJSON    string
	failClassify bool

	// Canned JSON for the fact validation extract call.
	validationJSON string

	// Sequential generation responses; the last one repeats.
	answers      []string
	failGenerate bool

	classifyCalls int
	generateCalls int

	// lastGenerateContent records the most recent generation input.
	lastGenerateContent string
}

func (m *scriptedProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1]

	if strings.Contains(last.Content, "risk classification") {
		m.classifyCalls++
		if m.failClassify {
			return nil, fmt.Errorf("classifier unreachable")
		}
		return &zyn.ProviderResponse{
			Content: m.routeJSON,
			Usage:   zyn.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
		}, nil
	}

	if strings.Contains(last.Content, "validation of the extracted facts") {
		return &zyn.ProviderResponse{
			Content: m.validationJSON,
			Usage:   zyn.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
		}, nil
	}

	m.generateCalls++
	m.lastGenerateContent = last.Content
	if m.failGenerate {
		return nil, fmt.Errorf("generation unavailable")
	}

	answer := "default answer"
	if len(m.answers) > 0 {
		idx := m.generateCalls - 1
		if idx >= len(m.answers) {
			idx = len(m.answers) - 1
		}
		answer = m.answers[idx]
	}

	return &zyn.ProviderResponse{
		Content: answer,
		Usage:   zyn.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
	}, nil
}

func (m *scriptedProvider) Name() string {
	return "scripted"
}

// staticEmbedder implements Embedder with fixed vectors per exact text.
type staticEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (m *staticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *staticEmbedder) Dimensions() int {
	return len(m.fallback)
}

// stubVerifier implements Verifier with a fixed result.
type stubVerifier struct {
	result VerificationResult
	calls  int
}

func (m *stubVerifier) Verify(_ context.Context, _ string) VerificationResult {
	m.calls++
	return m.result
}

// stubSearch implements SearchClient with fixed hits.
type stubSearch struct {
	results []SearchResult
	err     error
}

func (m *stubSearch) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// memoryArchive implements Archive in memory for pipeline tests.
type memoryArchive struct {
	mu        sync.Mutex
	exchanges []*Exchange
	failAll   bool
}

func (m *memoryArchive) AppendExchange(_ context.Context, exchange *Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return fmt.Errorf("archive unavailable")
	}
	m.exchanges = append(m.exchanges, exchange)
	return nil
}

func (m *memoryArchive) RecentTurns(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, fmt.Errorf("archive unavailable")
	}

	var turns []Turn
	for _, ex := range m.exchanges {
		if ex.SessionID != sessionID {
			continue
		}
		turns = append(turns, Turn{Role: "user", Content: ex.Query})
		if ex.Answer != "" {
			turns = append(turns, Turn{Role: "assistant", Content: ex.Answer})
		}
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (m *memoryArchive) SearchExchanges(_ context.Context, _ Vector, limit int) ([]*Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, fmt.Errorf("archive unavailable")
	}
	if len(m.exchanges) > limit {
		return m.exchanges[:limit], nil
	}
	return m.exchanges, nil
}
