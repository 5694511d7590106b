package caveo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// request carries one query through the stage sequence. Each stage
// writes its decision record exactly once; later stages only read.
type request struct {
	TraceID   string
	SessionID string
	Query     string

	Turns     []Turn
	Profile   SemanticProfile
	Risk      RiskSignal
	Policy    PolicyDecision
	Reasoning ReasoningDecision
	Outcome   Outcome
	Envelope  ResponseEnvelope
}

// PipelineConfig wires the pipeline's collaborators. Provider and
// Embedder fall back to the context/global resolution hierarchy when nil;
// Verifier and Archive are optional and degrade per policy when absent.
type PipelineConfig struct {
	Provider Provider
	Embedder Embedder
	Verifier Verifier
	Archive  Archive

	// Anchors overrides DefaultAnchors; Keywords overrides
	// HighRiskKeywords. Both are curated configuration data.
	Anchors  map[string][]string
	Keywords []string

	// Budget and DriftThreshold override the executor defaults when
	// non-zero.
	Budget         time.Duration
	DriftThreshold float64

	// TurnWindow caps how many prior turns feed generation context.
	TurnWindow int
}

// Pipeline is one stateless request processor. The only process-wide
// state it holds are two read-only caches built at construction: the
// embedded anchor vectors and the compiled keyword table. A single
// Pipeline is safe for concurrent use.
type Pipeline struct {
	profiler   *Profiler
	classifier *Classifier
	interpret  Interpreter
	controller DepthController
	executor   *Executor
	normalizer Normalizer
	archive    Archive
	embedder   Embedder
	turnWindow int

	chain pipz.Chainable[*request]
}

// NewPipeline constructs a pipeline and warms up its caches. Anchor
// warm-up failure is surfaced here; once constructed, no degraded
// service condition ever escapes Answer.
func NewPipeline(ctx context.Context, cfg PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{
		classifier: NewClassifier(cfg.Provider),
		interpret:  NewInterpreter(),
		controller: NewDepthController(),
		executor:   NewExecutor(cfg.Provider, cfg.Embedder, cfg.Verifier),
		normalizer: NewNormalizer(),
		archive:    cfg.Archive,
		embedder:   cfg.Embedder,
		turnWindow: cfg.TurnWindow,
	}

	if cfg.Keywords != nil {
		p.classifier = p.classifier.WithKeywords(cfg.Keywords)
	}
	if cfg.Budget > 0 {
		p.executor = p.executor.WithBudget(cfg.Budget)
	}
	if cfg.DriftThreshold > 0 {
		p.executor = p.executor.WithDriftThreshold(cfg.DriftThreshold)
	}
	if p.turnWindow <= 0 {
		p.turnWindow = DefaultTurnWindow
	}

	// Profiling is optional: without an embedder the depth controller
	// falls back to its safe default. Warm-up failure with a configured
	// embedder is a construction error, not a silent downgrade.
	if _, err := ResolveEmbedder(ctx, cfg.Embedder); err == nil {
		profiler, err := NewProfiler(ctx, cfg.Embedder, cfg.Anchors)
		if err != nil {
			return nil, err
		}
		p.profiler = profiler
	}

	p.chain = pipz.NewSequence(pipz.NewIdentity("caveo", ""),
		pipz.Apply(pipz.NewIdentity("context", ""), p.contextStage),
		pipz.Apply(pipz.NewIdentity("profile", ""), p.profileStage),
		pipz.Apply(pipz.NewIdentity("classify", ""), p.classifyStage),
		pipz.Apply(pipz.NewIdentity("interpret", ""), p.interpretStage),
		pipz.Apply(pipz.NewIdentity("depth", ""), p.depthStage),
		pipz.Apply(pipz.NewIdentity("execute", ""), p.executeStage),
		pipz.Apply(pipz.NewIdentity("normalize", ""), p.normalizeStage),
	)

	return p, nil
}

// Answer processes one query with no session context. Every call returns
// exactly one envelope, success or refusal; no other outcome exists.
func (p *Pipeline) Answer(ctx context.Context, query string) ResponseEnvelope {
	return p.AnswerWithSession(ctx, "", query)
}

// AnswerWithSession processes one query, feeding prior turns of the
// session into generation context and archiving the finished exchange.
func (p *Pipeline) AnswerWithSession(ctx context.Context, sessionID, query string) ResponseEnvelope {
	r := &request{
		TraceID:   uuid.New().String(),
		SessionID: sessionID,
		Query:     query,
	}

	capitan.Emit(ctx, ExchangeStarted,
		FieldTraceID.Field(r.TraceID),
		FieldSession.Field(sessionID),
		FieldQuery.Field(query),
	)

	out, err := p.chain.Process(ctx, r)
	if err != nil || out == nil {
		// Stages recover their own failures; this path exists only to
		// honor the one-envelope contract against the unexpected.
		return ResponseEnvelope{
			Status:       StatusRefused,
			Reason:       "The reasoning pipeline failed unexpectedly.",
			Needed:       []string{"Retry the request"},
			WhyItMatters: "A partial answer from a broken pipeline cannot be trusted.",
		}
	}

	p.archiveExchange(ctx, out)

	return out.Envelope
}

// contextStage fetches prior turns. Archive failures never fail the
// request.
func (p *Pipeline) contextStage(ctx context.Context, r *request) (*request, error) {
	if p.archive == nil || r.SessionID == "" {
		return r, nil
	}

	turns, err := p.archive.RecentTurns(ctx, r.SessionID, p.turnWindow)
	if err != nil {
		capitan.Error(ctx, ArchiveFailed,
			FieldTraceID.Field(r.TraceID),
			FieldError.Field(err),
		)
		return r, nil
	}

	r.Turns = turns
	return r, nil
}

// profileStage computes the semantic profile. A missing or failed
// profile is "no signal"; the depth stage falls back safely.
func (p *Pipeline) profileStage(ctx context.Context, r *request) (*request, error) {
	if p.profiler == nil {
		return r, nil
	}

	profile, err := p.profiler.Analyze(ctx, r.Query)
	if err != nil {
		return r, nil
	}

	r.Profile = profile
	capitan.Emit(ctx, ProfileComputed,
		FieldTraceID.Field(r.TraceID),
		FieldVersion.Field(ProfilerVersion),
	)
	return r, nil
}

func (p *Pipeline) classifyStage(ctx context.Context, r *request) (*request, error) {
	r.Risk = p.classifier.Predict(ctx, r.Query)
	return r, nil
}

func (p *Pipeline) interpretStage(ctx context.Context, r *request) (*request, error) {
	r.Policy = p.interpret.Interpret(ctx, r.Risk)
	return r, nil
}

func (p *Pipeline) depthStage(ctx context.Context, r *request) (*request, error) {
	r.Reasoning = p.controller.Decide(ctx, r.Query, r.Profile)
	return r, nil
}

func (p *Pipeline) executeStage(ctx context.Context, r *request) (*request, error) {
	r.Outcome = p.executor.Execute(ctx, r.Query, r.Policy, r.Reasoning, r.Turns)
	return r, nil
}

func (p *Pipeline) normalizeStage(ctx context.Context, r *request) (*request, error) {
	r.Envelope = p.normalizer.Normalize(ctx, r.Outcome, r.Policy, r.Reasoning)
	return r, nil
}

// archiveExchange persists the finished exchange, with a query embedding
// when one can be computed. Best effort only.
func (p *Pipeline) archiveExchange(ctx context.Context, r *request) {
	if p.archive == nil {
		return
	}

	sessionID := r.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	exchange := &Exchange{
		SessionID: sessionID,
		TraceID:   r.TraceID,
		Query:     r.Query,
		Answer:    r.Envelope.Answer,
		Status:    string(r.Envelope.Status),
		Route:     string(r.Policy.Situation),
		Depth:     string(r.Reasoning.Depth),
		Created:   time.Now(),
	}

	if embedder, err := ResolveEmbedder(ctx, p.embedder); err == nil {
		if vec, err := embedder.Embed(ctx, r.Query); err == nil {
			exchange.Embedding = vec
		}
	}

	if err := p.archive.AppendExchange(ctx, exchange); err != nil {
		capitan.Error(ctx, ArchiveFailed,
			FieldTraceID.Field(r.TraceID),
			FieldError.Field(err),
		)
		return
	}

	capitan.Emit(ctx, ExchangeArchived,
		FieldTraceID.Field(r.TraceID),
		FieldSession.Field(sessionID),
		FieldStatus.Field(string(r.Envelope.Status)),
		FieldTurnCount.Field(len(r.Turns)),
	)
}
