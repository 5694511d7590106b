package caveo

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	capitantesting "github.com/zoobzio/capitan/testing"
)

// getStringField extracts a string field value from a captured event.
func getStringField(event capitantesting.CapturedEvent, keyName string) string {
	for _, f := range event.Fields {
		if f.Key().Name() == keyName {
			if v, ok := f.Value().(string); ok {
				return v
			}
		}
	}
	return ""
}

func TestRouteClassifiedEvent(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(RouteClassified, capture.Handler())
	defer listener.Close()

	provider := &scriptedProvider{
		routeJSON: `{"route": "INFORMATIONAL", "confidence": 0.9, "signals": []}`,
	}
	classifier := NewClassifier(provider)

	classifier.Predict(context.Background(), "how does dns work")

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected RouteClassified event")
	}

	events := capture.Events()
	route := getStringField(events[0], FieldRoute.Name())
	if route != string(RouteInformational) {
		t.Errorf("expected route %q, got %q", RouteInformational, route)
	}
}

func TestRouteEscalatedEvent(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(RouteEscalated, capture.Handler())
	defer listener.Close()

	provider := &scriptedProvider{
		routeJSON: `{"route": "LOW_STAKES", "confidence": 0.9, "signals": []}`,
	}
	classifier := NewClassifier(provider)

	classifier.Predict(context.Background(), "should I deploy this to production")

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected RouteEscalated event")
	}

	events := capture.Events()
	signals := getStringField(events[0], FieldSignals.Name())
	if signals != "heuristic:high_risk_domain" {
		t.Errorf("expected heuristic escalation tag, got %q", signals)
	}
}

func TestRefusalIssuedEvent(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(RefusalIssued, capture.Handler())
	defer listener.Close()

	SetEmbedder(nil)

	provider := &scriptedProvider{}
	verifier := &stubVerifier{result: VerificationResult{
		Status: VerificationInsufficient,
		Gaps:   []string{"missing data"},
	}}
	executor := NewExecutor(provider, nil, verifier)

	executor.Execute(context.Background(), "what is the rate", strictPolicy(), lightReasoning(), nil)

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected RefusalIssued event")
	}

	events := capture.Events()
	route := getStringField(events[0], FieldRoute.Name())
	if route != string(RouteAccountability) {
		t.Errorf("expected route %q, got %q", RouteAccountability, route)
	}
}

func TestDriftDetectedEvent(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(DriftDetected, capture.Handler())
	defer listener.Close()

	SetEmbedder(nil)

	provider := &scriptedProvider{answers: []string{"off in the weeds", "on point"}}
	embedder := &staticEmbedder{
		vectors: map[string][]float32{
			"what is the rate": {1, 0},
			"off in the weeds": {0, 1},
		},
		fallback: []float32{1, 0},
	}
	executor := NewExecutor(provider, embedder, nil)

	executor.Execute(context.Background(), "what is the rate", relaxedPolicy(), lightReasoning(), nil)

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected DriftDetected event")
	}
}

func TestPassCompletedEvents(t *testing.T) {
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(PassCompleted, capture.Handler())
	defer listener.Close()

	SetEmbedder(nil)

	provider := &scriptedProvider{answers: []string{"analysis", "critique", "synthesis"}}
	executor := NewExecutor(provider, nil, nil)

	reasoning := lightReasoning()
	reasoning.Depth = DepthRigorous

	executor.Execute(context.Background(), "which option should I pick", relaxedPolicy(), reasoning, nil)

	if !capture.WaitForCount(3, time.Second) {
		t.Fatalf("expected 3 PassCompleted events, got %d", len(capture.Events()))
	}

	expected := []string{"analysis", "critique", "synthesis"}
	events := capture.Events()
	for i, want := range expected {
		pass := getStringField(events[i], FieldPass.Name())
		if pass != want {
			t.Errorf("event %d: expected pass %q, got %q", i, want, pass)
		}
	}
}
