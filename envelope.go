package caveo

import (
	"context"

	"github.com/zoobzio/capitan"
)

// ResponseStatus is the terminal status of an envelope.
type ResponseStatus string

const (
	// StatusVerified means verification ran and returned VERIFIED.
	StatusVerified ResponseStatus = "VERIFIED"
	// StatusConditional covers every answered-but-unverified case.
	StatusConditional ResponseStatus = "CONDITIONAL"
	// StatusRefused marks a refusal envelope.
	StatusRefused ResponseStatus = "REFUSED"
)

// Confidence labels attached to answer envelopes.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
)

// ResponseEnvelope is the terminal record of the pipeline: either an
// answer envelope or a refusal envelope. Created once, at the end, and
// never mutated after construction.
type ResponseEnvelope struct {
	Status         ResponseStatus `json:"status"`
	Answer         string         `json:"answer,omitempty"`
	Confidence     string         `json:"confidence,omitempty"`
	ReasoningDepth Depth          `json:"reasoning_depth,omitempty"`
	Assumptions    []string       `json:"assumptions,omitempty"`
	Limits         []string       `json:"limits,omitempty"`
	NextSteps      []string       `json:"next_steps,omitempty"`

	// Refusal fields. A refusal envelope never carries generated content.
	Reason       string   `json:"reason,omitempty"`
	Needed       []string `json:"needed,omitempty"`
	WhyItMatters string   `json:"why_it_matters,omitempty"`
}

// Refused reports whether this is a refusal envelope.
func (r ResponseEnvelope) Refused() bool {
	return r.Status == StatusRefused
}

// Normalizer converts the executor's outcome plus policy and verification
// metadata into one stable response record.
type Normalizer struct{}

// NewNormalizer creates a response normalizer.
func NewNormalizer() Normalizer {
	return Normalizer{}
}

// Normalize builds the terminal envelope.
func (Normalizer) Normalize(ctx context.Context, outcome Outcome, policy PolicyDecision, reasoning ReasoningDecision) ResponseEnvelope {
	if outcome.Refused() {
		envelope := ResponseEnvelope{
			Status:       StatusRefused,
			Reason:       outcome.Refusal.Reason,
			Needed:       outcome.Refusal.Needed,
			WhyItMatters: outcome.Refusal.WhyItMatters,
		}
		emitNormalized(ctx, envelope)
		return envelope
	}

	// VERIFIED only when verification occurred and succeeded; every
	// other answered case is CONDITIONAL.
	status := StatusConditional
	confidence := ConfidenceMedium
	if outcome.Verification != nil && outcome.Verification.Status == VerificationVerified {
		status = StatusVerified
		confidence = ConfidenceHigh
	}

	envelope := ResponseEnvelope{
		Status:         status,
		Answer:         outcome.Answer,
		Confidence:     confidence,
		ReasoningDepth: reasoning.Depth,
	}

	if outcome.Verification != nil && len(outcome.Verification.Gaps) > 0 {
		envelope.Limits = outcome.Verification.Gaps
	}

	// Strict and standard situations owe the user an account of how the
	// answer was reached and what to do with it.
	if policy.ExplanationRequired {
		envelope.Assumptions = explanationAssumptions(outcome, status)
		envelope.NextSteps = explanationNextSteps(policy)
	}

	emitNormalized(ctx, envelope)
	return envelope
}

func explanationAssumptions(outcome Outcome, status ResponseStatus) []string {
	if status == StatusVerified {
		return []string{"Externally verified facts were available and current at answer time"}
	}
	if outcome.Verification != nil {
		return []string{"External verification was attempted but could not fully confirm the facts"}
	}
	return []string{"Answer relies on model knowledge without external verification"}
}

func explanationNextSteps(policy PolicyDecision) []string {
	if policy.Ruleset == RulesetStrict {
		return []string{"Confirm critical facts with an authoritative source before acting"}
	}
	return []string{"Ask a follow-up to go deeper or narrow the scope"}
}

func emitNormalized(ctx context.Context, envelope ResponseEnvelope) {
	capitan.Emit(ctx, ResponseNormalized,
		FieldStatus.Field(string(envelope.Status)),
		FieldDepth.Field(string(envelope.ReasoningDepth)),
	)
}
