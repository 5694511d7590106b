package caveo

// Semantic anchors: canonical short phrases that define what each profile
// axis means. Anchors describe meaning, not keywords. They are configuration
// data requiring domain review, not control logic; changes must be versioned.
//
// AnchorsVersion identifies the current curated set.
const AnchorsVersion = "v1.0"

// DefaultAnchors maps each axis to its canonical phrase set.
var DefaultAnchors = map[string][]string{
	// User confusion / cognitive overload.
	"confusion": {
		"I don't understand this",
		"this is too complicated",
		"this is too technical",
		"I'm confused",
		"I'm lost",
		"this doesn't make sense to me",
		"can you explain this simply",
	},

	// Decision / choice intent.
	"decision_intent": {
		"should I do this",
		"what should I choose",
		"is this a good idea",
		"which option is better",
		"should I use this",
		"should I avoid this",
	},

	// Technical / engineering content.
	"technicality": {
		"system architecture",
		"machine learning model",
		"neural network embeddings",
		"deployment pipeline",
		"distributed system",
		"backend infrastructure",
		"API design",
		"database schema",
	},

	// Learning / exploration intent.
	"learning_intent": {
		"explain how this works",
		"I want to learn this",
		"teach me this concept",
		"how does this work internally",
		"break this down for me",
	},
}

// High-consequence domain indicators used by the risk classifier's
// deterministic annotation phase. A match never sets the route directly;
// it appends a heuristic tag that the escalation phase enforces.
var HighRiskKeywords = []string{
	"legal", "law", "contract", "tax", "gst", "compliance",
	"finance", "investment", "money", "loan",
	"medical", "health", "diagnosis",
	"production", "deploy", "security", "authentication",
	"immigration", "visa", "exam", "certificate",
}
