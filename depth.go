package caveo

import (
	"context"
	"math"
	"strings"

	"github.com/zoobzio/capitan"
)

// Depth is the level of reasoning effort requested from the generation
// service.
type Depth string

const (
	DepthNone       Depth = "NONE"
	DepthLight      Depth = "LIGHT"
	DepthStructured Depth = "STRUCTURED"
	DepthRigorous   Depth = "RIGOROUS"
)

// ReasoningDecision is the immutable depth decision for one request.
// Confidence reflects signal clarity, not correctness of the choice.
type ReasoningDecision struct {
	Depth             Depth
	Confidence        float64
	Signals           []string
	ControllerVersion string
}

// DepthController decides reasoning depth from semantic state. It never
// relies on keywords, never hallucinates certainty, and fails safely when
// semantic data is missing.
type DepthController struct{}

// NewDepthController creates a depth controller.
func NewDepthController() DepthController {
	return DepthController{}
}

// Depth rule thresholds. Ordered rules; first match wins.
const (
	confusionCeiling     = 0.75
	decisionIntentFloor  = 0.65
	noveltyFloor         = 0.6
	technicalityFloor    = 0.7
	confusionClearCutoff = 0.4
	trivialCutoff        = 0.25
)

// Decide picks a reasoning depth for the query. A nil or empty profile
// fails safe to LIGHT.
func (DepthController) Decide(ctx context.Context, query string, profile SemanticProfile) ReasoningDecision {
	if len(profile) == 0 {
		return emitDepth(ctx, ReasoningDecision{
			Depth:             DepthLight,
			Confidence:        0.4,
			Signals:           []string{"fallback:no_semantic_profile"},
			ControllerVersion: ControllerVersion,
		})
	}

	confusion := profile["confusion"]
	decisionIntent := profile["decision_intent"]
	technicality := profile["technicality"]
	novelty := profile["novelty"]

	// Threshold tags are attached whenever crossed, independent of which
	// depth rule ultimately fires, to preserve audit traceability.
	var signals []string
	if confusion > confusionCeiling {
		signals = append(signals, "semantic:high_confusion")
	}
	if decisionIntent > decisionIntentFloor {
		signals = append(signals, "semantic:decision_intent")
	}
	if technicality > technicalityFloor {
		signals = append(signals, "semantic:high_technicality")
	}
	if novelty > noveltyFloor {
		signals = append(signals, "semantic:novel_query")
	}

	var depth Depth
	switch {
	// Confused users must not receive dense reasoning, regardless of
	// topic difficulty.
	case confusion > confusionCeiling:
		depth = DepthLight

	// Decision-making requires rigor.
	case decisionIntent > decisionIntentFloor:
		depth = DepthRigorous

	// Novel but understandable topics benefit from structure.
	case novelty > noveltyFloor && confusion < confusionClearCutoff:
		depth = DepthStructured

	// Low signal on every axis = trivial query.
	case math.Max(math.Max(confusion, decisionIntent), math.Max(novelty, technicality)) < trivialCutoff:
		depth = DepthNone

	// Default safe middle ground.
	default:
		depth = DepthLight
	}

	clarity := math.Max(decisionIntent, math.Max(novelty, confusion))
	confidence := round2(math.Min(1.0, math.Max(0.4, clarity)))

	return emitDepth(ctx, ReasoningDecision{
		Depth:             depth,
		Confidence:        confidence,
		Signals:           signals,
		ControllerVersion: ControllerVersion,
	})
}

func emitDepth(ctx context.Context, d ReasoningDecision) ReasoningDecision {
	capitan.Emit(ctx, DepthDecided,
		FieldDepth.Field(string(d.Depth)),
		FieldConfidence.Field(float32(d.Confidence)),
		FieldSignals.Field(strings.Join(d.Signals, ",")),
	)
	return d
}
