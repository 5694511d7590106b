package caveo

import (
	"time"

	"github.com/zoobzio/zyn"
)

// Default configuration for the reasoning pipeline.
// These can be overridden per-component using builder methods.
var (
	// DefaultReasoningTemperature is used for every generation and
	// structured-classification call. Deterministic by default: the
	// pipeline requests repeatability, it never assumes it.
	DefaultReasoningTemperature = zyn.DefaultTemperatureDeterministic

	// DefaultDriftThreshold is the minimum query/answer cosine similarity
	// before the executor issues its single corrective regeneration.
	DefaultDriftThreshold = 0.55

	// DefaultReasoningBudget bounds the RIGOROUS multi-pass sequence.
	// The budget is re-checked between passes; exceeding it falls back
	// to a single STRUCTURED pass.
	DefaultReasoningBudget = 8 * time.Second

	// DefaultTurnWindow is how many prior conversation turns the pipeline
	// fetches from the archive for generation context.
	DefaultTurnWindow = 12
)

// Component version strings, attached to decision records for audit.
const (
	ClassifierVersion = "v3.0-consequence-safe"
	PolicyVersion     = "v1.0-stable"
	ControllerVersion = "v2.0-semantic-depth"
	ProfilerVersion   = "v1.0-semantic-core"
	DriftVersion      = "v1.0-drift-control"
)
