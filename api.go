// Package caveo provides a risk-graded reasoning pipeline for LLM-backed
// question answering in Go.
//
// caveo decides, deterministically and auditably, how much verification and
// cognitive rigor a query deserves before any answer is generated, then
// executes the matching reasoning procedure and checks the result for
// semantic drift before returning it.
//
// # Pipeline
//
// A request flows through six stages, each producing one immutable record:
//
//   - [Profiler] - scores the query against canonical semantic anchors
//     (confusion, decision intent, technicality, novelty)
//   - [Classifier] - estimates the consequence of answering wrongly and
//     emits a [RiskSignal] with a coarse [Route]
//   - [Interpreter] - translates the risk signal into a [PolicyDecision]
//     (verification? refusal allowed? strictness?)
//   - [DepthController] - picks a reasoning [Depth] from the semantic profile
//   - [Executor] - runs verification-gated, depth-gated generation with a
//     one-shot drift correction
//   - [Normalizer] - folds everything into one [ResponseEnvelope]
//
// Decision records are created exactly once per request and never mutated;
// later stages only read earlier decisions. Every degraded-service condition
// resolves to a fail-safe outcome inside the stage that detects it, so
// [Pipeline.Answer] always returns exactly one envelope.
//
// # Creating a Pipeline
//
//	pipeline, err := caveo.NewPipeline(ctx, caveo.PipelineConfig{
//	    Provider: myProvider,
//	    Embedder: caveo.NewOpenAIEmbedder(apiKey),
//	    Verifier: caveo.NewResearchVerifier(searchClient, myProvider),
//	})
//	envelope := pipeline.Answer(ctx, "should I deploy this to production")
//
// # Provider & Embedder
//
// LLM and embedding access uses a resolution hierarchy:
//
//  1. Explicit parameter (PipelineConfig field)
//  2. Context value (caveo.WithProvider(ctx, p))
//  3. Global default (caveo.SetProvider(p))
//
// # Persistence
//
// The [SoyArchive] implementation stores finished exchanges in PostgreSQL
// with pgvector embeddings for semantic search over past conversations:
//
//	archive, err := caveo.NewSoyArchive(db)
//
// The pipeline treats the archive as optional; archive failures degrade to
// signal emissions and never fail a request.
//
// # Observability
//
// caveo emits capitan signals throughout execution, including
// [RouteClassified], [PolicyResolved], [DepthDecided], [DriftDetected], and
// [ResponseNormalized]. Hook them with capitan to observe pipeline decisions.
package caveo
