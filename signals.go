package caveo

import "github.com/zoobzio/capitan"

// Signal definitions for pipeline events.
// Signals follow the pattern: caveo.<entity>.<event>.
var (
	// Request lifecycle signals.
	ExchangeStarted = capitan.NewSignal(
		"caveo.exchange.started",
		"New query entered the reasoning pipeline",
	)
	ExchangeArchived = capitan.NewSignal(
		"caveo.exchange.archived",
		"Finished exchange persisted to the archive",
	)
	ArchiveFailed = capitan.NewSignal(
		"caveo.archive.failed",
		"Archive write or read failed; request continues without it",
	)

	// Semantic profiling signals.
	ProfileComputed = capitan.NewSignal(
		"caveo.profile.computed",
		"Semantic profile scored against anchor vectors",
	)
	ProfileUnavailable = capitan.NewSignal(
		"caveo.profile.unavailable",
		"Embedding service unavailable; downstream falls back to safe depth",
	)

	// Risk classification signals.
	RouteClassified = capitan.NewSignal(
		"caveo.route.classified",
		"Consequence route estimated for the query",
	)
	RouteEscalated = capitan.NewSignal(
		"caveo.route.escalated",
		"Heuristic floor or invalid-route correction forced a safer route",
	)
	ClassifierFailed = capitan.NewSignal(
		"caveo.classifier.failed",
		"External classification failed; route fails closed",
	)

	// Policy signals.
	PolicyResolved = capitan.NewSignal(
		"caveo.policy.resolved",
		"Risk signal translated into an operating policy",
	)

	// Depth signals.
	DepthDecided = capitan.NewSignal(
		"caveo.depth.decided",
		"Reasoning depth chosen from the semantic profile",
	)

	// Execution signals.
	VerificationCompleted = capitan.NewSignal(
		"caveo.verification.completed",
		"Verification collaborator returned a status",
	)
	PassCompleted = capitan.NewSignal(
		"caveo.pass.completed",
		"One pass of the multi-pass reasoning sequence finished",
	)
	ReasoningAborted = capitan.NewSignal(
		"caveo.reasoning.aborted",
		"Multi-pass sequence abandoned; falling back to structured pass",
	)
	DriftDetected = capitan.NewSignal(
		"caveo.drift.detected",
		"Answer drifted from the question; corrective regeneration issued",
	)
	RefusalIssued = capitan.NewSignal(
		"caveo.refusal.issued",
		"Policy-sanctioned refusal short-circuited generation",
	)

	// Normalization signals.
	ResponseNormalized = capitan.NewSignal(
		"caveo.response.normalized",
		"Terminal response envelope constructed",
	)
)

// Field keys for caveo event data.
var (
	// Request metadata.
	FieldTraceID = capitan.NewStringKey("trace_id")
	FieldQuery   = capitan.NewStringKey("query")
	FieldSession = capitan.NewStringKey("session_id")

	// Decision metadata.
	FieldRoute      = capitan.NewStringKey("route")
	FieldRuleset    = capitan.NewStringKey("ruleset")
	FieldDepth      = capitan.NewStringKey("depth")
	FieldStatus     = capitan.NewStringKey("status")
	FieldConfidence = capitan.NewFloat32Key("confidence")
	FieldSignals    = capitan.NewStringKey("signals")
	FieldVersion    = capitan.NewStringKey("version")

	// Execution metadata.
	FieldPass       = capitan.NewStringKey("pass")
	FieldSimilarity = capitan.NewFloat32Key("similarity")
	FieldGapCount   = capitan.NewIntKey("gap_count")
	FieldTurnCount  = capitan.NewIntKey("turn_count")

	// Timing.
	FieldStageDuration = capitan.NewDurationKey("stage_duration")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
