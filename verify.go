package caveo

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/zyn"
)

// VerificationStatus is the three-status contract of the verification
// collaborator. The pipeline depends on nothing else about it.
type VerificationStatus string

const (
	VerificationVerified     VerificationStatus = "VERIFIED"
	VerificationInsufficient VerificationStatus = "INSUFFICIENT"
	VerificationError        VerificationStatus = "ERROR"
)

// VerificationResult is produced by a Verifier and consumed, never
// mutated, by the executor.
type VerificationResult struct {
	Status     VerificationStatus
	Content    string
	Confidence float64
	Gaps       []string
}

// Verifier acquires and validates external facts for a query.
// A Verifier never decides whether to answer, never decides refusal,
// and never decides strictness - those belong to the policy.
type Verifier interface {
	Verify(ctx context.Context, query string) VerificationResult
}

// SearchResult is one retrieval hit from a SearchClient.
type SearchResult struct {
	Title   string
	URL     string
	Content string
}

// SearchClient is the abstract retrieval service the research verifier
// calls. Implementations wrap whatever search API a deployment uses.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// factValidation is the strict JSON schema of the fact validation call.
type factValidation struct {
	ValidatedContent string   `json:"validated_content"`
	Confidence       float64  `json:"confidence"`
	Gaps             []string `json:"gaps"`
}

// Validate implements zyn.Validator.
func (factValidation) Validate() error { return nil }

const factValidationSchema = "validation of the extracted facts: validated_content (the facts " +
	"that hold up, as text), confidence (0.0-1.0), and gaps (missing critical information " +
	"or inconsistencies, as short strings)"

const factExtractionPrompt = "Extract ONLY verifiable facts, dates, numbers, and constraints. " +
	"Ignore opinions, ads, UI text, and speculation."

// verifiedConfidenceFloor is the minimum validation confidence for a
// VERIFIED status; anything lower, or any reported gap, is INSUFFICIENT.
const verifiedConfidenceFloor = 0.7

// ResearchVerifier implements Verifier with a three-step procedure:
// live retrieval, fact extraction, fact validation. Each step degrades
// to INSUFFICIENT rather than failing the request; only unrecoverable
// faults surface as ERROR.
type ResearchVerifier struct {
	search     SearchClient
	provider   Provider
	maxResults int
}

// NewResearchVerifier creates a verifier over the given retrieval and
// generation services.
func NewResearchVerifier(search SearchClient, provider Provider) *ResearchVerifier {
	return &ResearchVerifier{
		search:     search,
		provider:   provider,
		maxResults: 5,
	}
}

// WithMaxResults returns a copy of the verifier with a replaced cap on
// how many retrieval hits feed fact extraction. The receiver is not
// modified.
func (v *ResearchVerifier) WithMaxResults(n int) *ResearchVerifier {
	clone := *v
	clone.maxResults = n
	return &clone
}

// Verify runs the research procedure for a query.
func (v *ResearchVerifier) Verify(ctx context.Context, query string) VerificationResult {
	raw := v.liveResearch(ctx, query)
	if raw == "" {
		return insufficient("No relevant external data found")
	}

	facts := v.extractFacts(ctx, raw)
	if facts == "" {
		return insufficient("Facts could not be reliably extracted")
	}

	return v.validateFacts(ctx, facts)
}

// liveResearch retrieves raw external content and scrubs it before any
// model sees it. Retrieval failure is treated as "nothing found".
func (v *ResearchVerifier) liveResearch(ctx context.Context, query string) string {
	results, err := v.search.Search(ctx, query, v.maxResults)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Content)
		b.WriteString("\n")
	}

	return Redact(b.String())
}

// extractFacts asks the generation service to distill verifiable facts
// from the raw retrieval content.
func (v *ResearchVerifier) extractFacts(ctx context.Context, raw string) string {
	provider, err := ResolveProvider(ctx, v.provider)
	if err != nil {
		return ""
	}

	resp, err := provider.Call(ctx, []zyn.Message{
		{Role: "system", Content: factExtractionPrompt},
		{Role: "user", Content: raw},
	}, DefaultReasoningTemperature)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(resp.Content)
}

// validateFacts runs the strict-JSON validation call and maps its output
// onto the three-status contract.
func (v *ResearchVerifier) validateFacts(ctx context.Context, facts string) VerificationResult {
	provider, err := ResolveProvider(ctx, v.provider)
	if err != nil {
		return VerificationResult{
			Status: VerificationError,
			Gaps:   []string{err.Error()},
		}
	}

	synapse, err := zyn.Extract[factValidation](factValidationSchema, provider)
	if err != nil {
		return VerificationResult{
			Status: VerificationError,
			Gaps:   []string{fmt.Sprintf("failed to create validation synapse: %v", err)},
		}
	}

	validated, err := synapse.FireWithInput(ctx, zyn.NewSession(), zyn.ExtractionInput{
		Text:        facts,
		Temperature: DefaultReasoningTemperature,
	})
	if err != nil {
		return insufficient("Fact validation failed")
	}

	confidence := round2(clamp01(validated.Confidence))

	status := VerificationInsufficient
	if confidence >= verifiedConfidenceFloor && len(validated.Gaps) == 0 {
		status = VerificationVerified
	}

	return VerificationResult{
		Status:     status,
		Content:    validated.ValidatedContent,
		Confidence: confidence,
		Gaps:       validated.Gaps,
	}
}

func insufficient(gaps ...string) VerificationResult {
	return VerificationResult{
		Status: VerificationInsufficient,
		Gaps:   gaps,
	}
}

var _ Verifier = (*ResearchVerifier)(nil)
