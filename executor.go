package caveo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/zyn"
)

// Refusal is the executor's short-circuit outcome when policy sanctions
// declining to answer. The normalizer turns it into a refusal envelope.
type Refusal struct {
	Reason       string
	Needed       []string
	WhyItMatters string
}

// Outcome is what the executor hands to the normalizer: either an answer
// or a refusal trigger, plus the verification result when one was
// obtained and audit signals describing any degradation taken.
type Outcome struct {
	Answer       string
	Refusal      *Refusal
	Verification *VerificationResult
	Signals      []string
}

// Refused reports whether the outcome is a refusal trigger.
func (o Outcome) Refused() bool {
	return o.Refusal != nil
}

// reasoningPass is one state of the multi-pass sequence.
type reasoningPass string

const (
	passAnalysis  reasoningPass = "analysis"
	passCritique  reasoningPass = "critique"
	passSynthesis reasoningPass = "synthesis"
	passAborted   reasoningPass = "aborted"
)

// reasoningTrace holds the intermediate artifacts of a RIGOROUS run.
// Never exposed to the caller.
type reasoningTrace struct {
	analysis  string
	critique  string
	synthesis string
}

// errBudgetExceeded aborts the multi-pass sequence between passes.
var errBudgetExceeded = errors.New("reasoning budget exceeded")

// Depth-gated system instructions for single-pass generation.
const (
	promptDirect     = "Answer directly and plainly. One unembellished response, no preamble."
	promptLight      = "Provide a short, clear explanation. Answer first, brief support after."
	promptStructured = "Explain step by step. Number the steps, keep each one concrete, and finish with the conclusion."

	promptAnalysis = "Enumerate the assumptions, constraints, and risks relevant to the question. " +
		"Do NOT state a final answer or recommendation."
	promptCritique = "Review the analysis below for gaps, unstated assumptions, and errors. " +
		"Do not answer the original question."
	promptSynthesis = "Produce the final, user-facing answer from the analysis and critique. " +
		"State limits and remaining uncertainty explicitly."

	promptDriftCorrection = "The previous answer drifted from the question. Produce a simpler, " +
		"more directly responsive answer to exactly what was asked."
)

// Executor runs verification-gated, depth-gated generation and checks the
// candidate answer for semantic drift before releasing it. All text it
// returns has passed the deterministic redaction pass.
type Executor struct {
	provider       Provider
	embedder       Embedder
	verifier       Verifier
	budget         time.Duration
	driftThreshold float64
}

// NewExecutor creates an executor over the given services. The verifier
// and embedder may be nil; the corresponding gates then degrade silently.
func NewExecutor(provider Provider, embedder Embedder, verifier Verifier) *Executor {
	return &Executor{
		provider:       provider,
		embedder:       embedder,
		verifier:       verifier,
		budget:         DefaultReasoningBudget,
		driftThreshold: DefaultDriftThreshold,
	}
}

// WithBudget returns a copy of the executor with the wall-clock budget
// for the RIGOROUS sequence replaced. The receiver is not modified.
func (e *Executor) WithBudget(d time.Duration) *Executor {
	clone := *e
	clone.budget = d
	return &clone
}

// WithDriftThreshold returns a copy of the executor with the minimum
// query/answer cosine similarity replaced. The receiver is not modified.
func (e *Executor) WithDriftThreshold(t float64) *Executor {
	clone := *e
	clone.driftThreshold = t
	return &clone
}

// Execute runs the three stages for one request. It never returns an
// error: every degraded condition resolves to an answer or a refusal.
func (e *Executor) Execute(ctx context.Context, query string, policy PolicyDecision, reasoning ReasoningDecision, turns []Turn) Outcome {
	var signals []string

	// Stage A: verification gate.
	var verification *VerificationResult
	contextText := ""
	if policy.VerificationRequired && e.verifier != nil {
		result := e.verifier.Verify(ctx, query)
		verification = &result

		capitan.Emit(ctx, VerificationCompleted,
			FieldStatus.Field(string(result.Status)),
			FieldConfidence.Field(float32(result.Confidence)),
			FieldGapCount.Field(len(result.Gaps)),
		)

		if result.Status != VerificationVerified && policy.RefusalAllowed {
			refusal := refusalFromVerification(result)
			capitan.Emit(ctx, RefusalIssued,
				FieldRoute.Field(string(policy.Situation)),
				FieldGapCount.Field(len(refusal.Needed)),
			)
			return Outcome{
				Refusal:      refusal,
				Verification: verification,
				Signals:      append(signals, "refusal:verification_"+strings.ToLower(string(result.Status))),
			}
		}

		// Absence of verified content is not itself fatal when refusal
		// is not allowed; reasoning proceeds with empty context.
		contextText = result.Content
	}

	// Stage B: depth-gated generation.
	answer, err := e.generateAtDepth(ctx, query, reasoning.Depth, contextText, turns, &signals)
	if err != nil {
		// Total generation failure. The caller-visible contract is one
		// envelope per request, so this becomes a structured refusal.
		capitan.Error(ctx, RefusalIssued,
			FieldRoute.Field(string(policy.Situation)),
			FieldError.Field(err),
		)
		return Outcome{
			Refusal: &Refusal{
				Reason:       "The generation service is unavailable.",
				Needed:       []string{"A reachable text-generation service"},
				WhyItMatters: "No answer can be produced without it; guessing is not an option.",
			},
			Verification: verification,
			Signals:      append(signals, "error:generation_failed"),
		}
	}

	// Stage C: drift check, then redaction on the way out.
	answer = e.driftCheck(ctx, query, answer, contextText, turns, &signals)

	return Outcome{
		Answer:       Redact(answer),
		Verification: verification,
		Signals:      signals,
	}
}

// generateAtDepth dispatches to the single-pass or multi-pass path.
func (e *Executor) generateAtDepth(ctx context.Context, query string, depth Depth, contextText string, turns []Turn, signals *[]string) (string, error) {
	switch depth {
	case DepthNone:
		return e.generate(ctx, promptDirect, renderUserContent(query, contextText, turns))
	case DepthRigorous:
		answer, err := e.runRigorous(ctx, query, contextText, turns)
		if err == nil {
			return answer, nil
		}
		// Budget exhaustion or any pass failure falls back to the
		// structured single pass rather than blocking or crashing.
		capitan.Emit(ctx, ReasoningAborted,
			FieldError.Field(err),
		)
		*signals = append(*signals, "fallback:structured_single_pass")
		return e.generate(ctx, promptStructured, renderUserContent(query, contextText, turns))
	case DepthStructured:
		return e.generate(ctx, promptStructured, renderUserContent(query, contextText, turns))
	default:
		return e.generate(ctx, promptLight, renderUserContent(query, contextText, turns))
	}
}

// runRigorous executes the fixed analysis-critique-synthesis sequence as
// a small state machine. The wall-clock budget is re-evaluated before
// every pass; this cooperative checkpoint is the sequence's sole
// cancellation mechanism.
func (e *Executor) runRigorous(ctx context.Context, query string, contextText string, turns []Turn) (string, error) {
	deadline := time.Now().Add(e.budget)
	userContent := renderUserContent(query, contextText, turns)

	var trace reasoningTrace
	state := passAnalysis

	for state != passAborted {
		if time.Now().After(deadline) {
			return "", errBudgetExceeded
		}

		start := time.Now()
		current := state
		switch state {
		case passAnalysis:
			out, err := e.generate(ctx, promptAnalysis, userContent)
			if err != nil {
				return "", fmt.Errorf("analysis pass failed: %w", err)
			}
			trace.analysis = out
			state = passCritique

		case passCritique:
			out, err := e.generate(ctx, promptCritique,
				fmt.Sprintf("QUESTION:\n%s\n\nANALYSIS:\n%s", query, trace.analysis))
			if err != nil {
				return "", fmt.Errorf("critique pass failed: %w", err)
			}
			trace.critique = out
			state = passSynthesis

		case passSynthesis:
			out, err := e.generate(ctx, promptSynthesis,
				fmt.Sprintf("QUESTION:\n%s\n\nANALYSIS:\n%s\n\nCRITIQUE:\n%s",
					query, trace.analysis, trace.critique))
			if err != nil {
				return "", fmt.Errorf("synthesis pass failed: %w", err)
			}
			trace.synthesis = out
			state = passAborted
		}

		capitan.Emit(ctx, PassCompleted,
			FieldPass.Field(string(current)),
			FieldStageDuration.Field(time.Since(start)),
		)
	}

	return trace.synthesis, nil
}

// driftCheck embeds the query and candidate answer and, below the
// similarity threshold, issues exactly one corrective regeneration whose
// result is used unconditionally. Embedding failure skips the check;
// drift detection degrades silently, it never blocks the response.
func (e *Executor) driftCheck(ctx context.Context, query, answer, contextText string, turns []Turn, signals *[]string) string {
	embedder, err := ResolveEmbedder(ctx, e.embedder)
	if err != nil {
		return answer
	}

	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return answer
	}
	answerVec, err := embedder.Embed(ctx, answer)
	if err != nil {
		return answer
	}

	similarity := Cosine(queryVec, answerVec)
	if similarity >= e.driftThreshold {
		return answer
	}

	capitan.Emit(ctx, DriftDetected,
		FieldSimilarity.Field(float32(similarity)),
		FieldVersion.Field(DriftVersion),
	)
	*signals = append(*signals, "drift:corrected")

	corrected, err := e.generate(ctx, promptDriftCorrection, renderUserContent(query, contextText, turns))
	if err != nil {
		return answer
	}
	return corrected
}

// generate is the standardized low-level generation call. Determinism is
// requested via temperature; bit-exact reproducibility is never assumed.
func (e *Executor) generate(ctx context.Context, system, user string) (string, error) {
	provider, err := ResolveProvider(ctx, e.provider)
	if err != nil {
		return "", err
	}

	resp, err := provider.Call(ctx, []zyn.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, DefaultReasoningTemperature)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}

// renderUserContent assembles the generation input: prior turns and
// verified context are opaque text, the question always comes last.
func renderUserContent(query, contextText string, turns []Turn) string {
	var b strings.Builder

	if len(turns) > 0 {
		b.WriteString("--- PRIOR CONVERSATION ---\n")
		for _, turn := range turns {
			b.WriteString(turn.Role)
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if contextText != "" {
		b.WriteString("--- BEGIN CONTEXT ---\n")
		b.WriteString(contextText)
		b.WriteString("\n--- END CONTEXT ---\n\n")
	}

	b.WriteString("USER QUESTION: ")
	b.WriteString(query)

	return b.String()
}

// refusalFromVerification builds the refusal trigger for a failed
// verification gate. Needed is always non-empty.
func refusalFromVerification(result VerificationResult) *Refusal {
	needed := result.Gaps
	if len(needed) == 0 {
		needed = []string{"Verified external facts for this query"}
	}

	reason := "Verification could not establish the facts this answer depends on."
	if result.Status == VerificationError {
		reason = "The verification service failed before the facts could be checked."
	}

	return &Refusal{
		Reason:       reason,
		Needed:       needed,
		WhyItMatters: "Under a strict ruleset, an unverified answer can cause real-world harm.",
	}
}
