package caveo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/zyn"
)

// Route is the coarse risk classification of a query's potential
// consequence if answered incorrectly.
type Route string

// Canonical routes, ordered from most permissive to most conservative.
const (
	RouteLowStakes       Route = "LOW_STAKES"
	RouteInformational   Route = "INFORMATIONAL"
	RouteDecisionSupport Route = "DECISION_SUPPORT"
	RouteAccountability  Route = "ACCOUNTABILITY_REQUIRED"
)

// CanonicalRoutes is the closed set of valid routes.
var CanonicalRoutes = map[Route]bool{
	RouteLowStakes:       true,
	RouteInformational:   true,
	RouteDecisionSupport: true,
	RouteAccountability:  true,
}

// RiskSignal is the classifier's immutable output: one per request.
type RiskSignal struct {
	Route      Route
	Confidence float64
	Signals    []string
	Version    string
}

// routeEstimate is the strict JSON schema the external classifier must
// return. Anything that does not unmarshal cleanly is a failure, never a
// partial parse.
type routeEstimate struct {
	Route      string   `json:"route"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals"`
}

// Validate implements zyn.Validator.
func (routeEstimate) Validate() error { return nil }

const routeEstimateSchema = "risk classification of the query by consequence of being wrong: " +
	"route (LOW_STAKES | INFORMATIONAL | DECISION_SUPPORT | ACCOUNTABILITY_REQUIRED), " +
	"confidence (0.0-1.0), and signals (subset of: decision_request, external_dependency, " +
	"regulatory_context, user_accountability)"

// Classifier estimates the consequence of answering a query wrongly.
// It combines a deterministic keyword annotation with one external
// structured classification call, then applies a hard escalation floor
// that classifier noise can never bypass.
//
// The keyword table is compiled once at construction and read-only
// afterward; a single Classifier is safe for concurrent use.
type Classifier struct {
	provider Provider
	keywords []string
}

// NewClassifier creates a risk classifier with the default
// high-consequence keyword table.
func NewClassifier(provider Provider) *Classifier {
	return &Classifier{
		provider: provider,
		keywords: compileKeywords(HighRiskKeywords),
	}
}

// WithKeywords returns a copy of the classifier with a replaced
// high-consequence keyword table. The receiver is not modified.
// Keywords are matched case-insensitively as substrings.
func (c *Classifier) WithKeywords(keywords []string) *Classifier {
	clone := *c
	clone.keywords = compileKeywords(keywords)
	return &clone
}

func compileKeywords(keywords []string) []string {
	compiled := make([]string, len(keywords))
	for i, k := range keywords {
		compiled[i] = strings.ToLower(k)
	}
	return compiled
}

// Predict classifies the text into a RiskSignal. It never returns an
// error: every failure biases toward the most conservative route.
func (c *Classifier) Predict(ctx context.Context, text string) RiskSignal {
	signals := []string{}

	// Phase 1: deterministic annotation. A match tags the signal set but
	// does not set the route yet.
	lowered := strings.ToLower(text)
	heuristicHit := c.containsHighRiskKeyword(lowered)
	if heuristicHit {
		signals = append(signals, "heuristic:high_risk_domain")
	}

	// Phase 2: external consequence estimation.
	route, confidence, llmSignals, err := c.estimate(ctx, text)
	if err != nil {
		capitan.Error(ctx, ClassifierFailed,
			FieldError.Field(err),
		)
		route = RouteAccountability
		confidence = 0.2
		signals = append(signals, "llm:failure")
	} else {
		for _, s := range llmSignals {
			signals = append(signals, "llm:"+s)
		}
		if !CanonicalRoutes[route] {
			route = RouteAccountability
			signals = append(signals, "system:invalid_route_corrected")
			capitan.Emit(ctx, RouteEscalated,
				FieldRoute.Field(string(route)),
				FieldSignals.Field("system:invalid_route_corrected"),
			)
		}
	}

	// Phase 3: hard safety escalation. The heuristic floor overrides
	// whatever the external classifier returned.
	if heuristicHit && route != RouteAccountability {
		route = RouteAccountability
		capitan.Emit(ctx, RouteEscalated,
			FieldRoute.Field(string(route)),
			FieldSignals.Field("heuristic:high_risk_domain"),
		)
	}

	sig := RiskSignal{
		Route:      route,
		Confidence: round2(clamp01(confidence)),
		Signals:    sortedUnique(signals),
		Version:    ClassifierVersion,
	}

	capitan.Emit(ctx, RouteClassified,
		FieldRoute.Field(string(sig.Route)),
		FieldConfidence.Field(float32(sig.Confidence)),
		FieldSignals.Field(strings.Join(sig.Signals, ",")),
	)

	return sig
}

func (c *Classifier) containsHighRiskKeyword(lowered string) bool {
	for _, k := range c.keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// estimate makes the single external classification call. The raw output
// is not fully trusted; validation happens in Predict.
func (c *Classifier) estimate(ctx context.Context, text string) (Route, float64, []string, error) {
	provider, err := ResolveProvider(ctx, c.provider)
	if err != nil {
		return "", 0, nil, err
	}

	synapse, err := zyn.Extract[routeEstimate](routeEstimateSchema, provider)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to create extract synapse: %w", err)
	}

	estimate, err := synapse.FireWithInput(ctx, zyn.NewSession(), zyn.ExtractionInput{
		Text:        text,
		Temperature: DefaultReasoningTemperature,
	})
	if err != nil {
		return "", 0, nil, fmt.Errorf("consequence estimation failed: %w", err)
	}

	return Route(estimate.Route), estimate.Confidence, estimate.Signals, nil
}

// sortedUnique returns the tags sorted and de-duplicated for determinism.
func sortedUnique(signals []string) []string {
	seen := make(map[string]bool, len(signals))
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
