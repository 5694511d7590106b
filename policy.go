package caveo

import (
	"context"
	"strings"

	"github.com/zoobzio/capitan"
)

// Ruleset is the strictness tier attached to a situation.
type Ruleset string

const (
	RulesetRelaxed  Ruleset = "relaxed"
	RulesetStandard Ruleset = "standard"
	RulesetStrict   Ruleset = "strict"
)

// PolicyDecision is the immutable operating policy for one request.
// It is the sole authority downstream stages consult for policy
// questions; it must never be re-derived from the raw query.
type PolicyDecision struct {
	Situation            Route
	Ruleset              Ruleset
	VerificationRequired bool
	RefusalAllowed       bool
	ExplanationRequired  bool
	PolicyVersion        string
	Signals              []string
}

// policyRule is one row of the static situation table.
type policyRule struct {
	ruleset              Ruleset
	verificationRequired bool
	refusalAllowed       bool
	explanationRequired  bool
}

// situationRules maps each canonical route to its behavior contract.
// The table is intentionally static and explicit; any evolution must be
// versioned and deliberate.
var situationRules = map[Route]policyRule{
	RouteLowStakes: {
		ruleset:              RulesetRelaxed,
		verificationRequired: false,
		refusalAllowed:       false,
		explanationRequired:  false,
	},
	RouteInformational: {
		ruleset:              RulesetStandard,
		verificationRequired: false,
		refusalAllowed:       false,
		explanationRequired:  true,
	},
	RouteDecisionSupport: {
		ruleset:              RulesetStrict,
		verificationRequired: true,
		refusalAllowed:       true,
		explanationRequired:  true,
	},
	RouteAccountability: {
		ruleset:              RulesetStrict,
		verificationRequired: true,
		refusalAllowed:       true,
		explanationRequired:  true,
	},
}

// Interpreter translates a RiskSignal into an explicit operating policy.
// It enforces policy, it does not reason; the mapping is a static table
// plus a small set of hard overrides.
type Interpreter struct{}

// NewInterpreter creates a policy interpreter.
func NewInterpreter() Interpreter {
	return Interpreter{}
}

// Interpret maps a risk signal to a PolicyDecision. Pure: same input,
// same output, no external calls.
func (Interpreter) Interpret(ctx context.Context, sig RiskSignal) PolicyDecision {
	route := sig.Route

	// Hard policy overrides. Certain signals always escalate the route
	// itself, not just the table choice.
	if hasSignal(sig.Signals, "regulatory_context") {
		route = RouteAccountability
	}
	if hasSignal(sig.Signals, "user_accountability") {
		route = RouteAccountability
	}
	if hasSignal(sig.Signals, "decision_request") && route == RouteInformational {
		route = RouteDecisionSupport
	}

	// Confidence guard: low-confidence high-stakes classifications are
	// never trusted at their original severity, only escalated.
	if sig.Confidence < 0.4 && (route == RouteDecisionSupport || route == RouteAccountability) {
		route = RouteAccountability
	}

	rule, ok := situationRules[route]
	if !ok {
		// Absolute fail-safe; should never happen.
		route = RouteInformational
		rule = situationRules[RouteInformational]
	}

	decision := PolicyDecision{
		Situation:            route,
		Ruleset:              rule.ruleset,
		VerificationRequired: rule.verificationRequired,
		RefusalAllowed:       rule.refusalAllowed,
		ExplanationRequired:  rule.explanationRequired,
		PolicyVersion:        PolicyVersion,
		Signals:              sig.Signals,
	}

	capitan.Emit(ctx, PolicyResolved,
		FieldRoute.Field(string(decision.Situation)),
		FieldRuleset.Field(string(decision.Ruleset)),
	)

	return decision
}

// hasSignal matches a tag with or without its namespace prefix, so
// classifier-namespaced tags (llm:regulatory_context) still trigger
// overrides keyed on the bare name.
func hasSignal(signals []string, name string) bool {
	for _, s := range signals {
		if s == name {
			return true
		}
		if idx := strings.IndexByte(s, ':'); idx >= 0 && s[idx+1:] == name {
			return true
		}
	}
	return false
}
