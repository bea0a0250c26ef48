package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/events"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
	"github.com/pauldevelopai/alibi-sub001/internal/plan"
	"github.com/pauldevelopai/alibi-sub001/internal/validate"
)

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

type slowGenerator struct{ delay time.Duration }

func (s slowGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "eventually", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func scanner() *validate.Validator {
	return validate.NewValidator(config.ThresholdConfig{NotifyConfidence: 0.75, HighSeverity: 4})
}

func testPlan() plan.IncidentPlan {
	return plan.IncidentPlan{
		IncidentID:        uuid.New(),
		Summary:           "Automated observation for zone z3: 1 event(s) recorded (person_detected x1). Maximum severity 3 of 5. Aggregate confidence 0.85.",
		Severity:          3,
		Confidence:        0.85,
		RecommendedAction: plan.ActionNotify,
		EvidenceRefs:      []string{"https://media/clips/a.mp4"},
	}
}

func testIncident() incident.Incident {
	return incident.Incident{
		IncidentID: uuid.New(),
		Status:     incident.StatusPlanBuilt,
		ZoneID:     "z3",
		Events: []events.DetectionEvent{{
			EventID:    uuid.New(),
			SourceID:   "cam-2",
			Timestamp:  time.Now(),
			ZoneID:     "z3",
			EventType:  events.TypePersonDetected,
			Confidence: 0.85,
			Severity:   3,
			ClipURL:    "https://media/clips/a.mp4",
		}},
	}
}

func TestCompile_Deterministic(t *testing.T) {
	c := NewCompiler(DeterministicGenerator{}, scanner())

	msg := c.Compile(context.Background(), testPlan(), testIncident())

	assert.Equal(t, "Zone z3: person_detected activity (severity 3)", msg.Title)
	assert.Equal(t, testPlan().Summary, msg.Body)
	assert.Equal(t, []string{"https://media/clips/a.mp4"}, msg.EvidenceRefs)
	assert.NotEqual(t, uuid.Nil, msg.AlertID)
}

func TestCompile_TitleUsesDrivingEvent(t *testing.T) {
	in := testIncident()
	in.Events = append(in.Events, events.DetectionEvent{
		EventID:    uuid.New(),
		SourceID:   "cam-2",
		Timestamp:  time.Now(),
		ZoneID:     "z3",
		EventType:  events.TypeRedLightViolation,
		Confidence: 0.9,
		Severity:   5,
	})
	p := testPlan()
	p.Severity = 5

	msg := NewCompiler(DeterministicGenerator{}, scanner()).Compile(context.Background(), p, in)
	assert.Contains(t, msg.Title, "red_light_violation")
}

func TestCompile_AppendsCleanGeneratedText(t *testing.T) {
	c := NewCompiler(stubGenerator{text: "Movement continued toward the east exit."}, scanner())

	msg := c.Compile(context.Background(), testPlan(), testIncident())
	assert.Contains(t, msg.Body, testPlan().Summary)
	assert.Contains(t, msg.Body, "Movement continued toward the east exit.")
}

func TestCompile_DiscardsDenylistedGeneratedText(t *testing.T) {
	c := NewCompiler(stubGenerator{text: "The suspect is still on the premises."}, scanner())

	msg := c.Compile(context.Background(), testPlan(), testIncident())
	assert.Equal(t, testPlan().Summary, msg.Body)
	assert.NotContains(t, msg.Body, "suspect")
}

func TestCompile_DiscardsIdentityClaimForWatchlistPlan(t *testing.T) {
	p := testPlan()
	p.IdentitySensitive = true
	c := NewCompiler(stubGenerator{text: "Match confirmed with enrolled record."}, scanner())

	msg := c.Compile(context.Background(), p, testIncident())
	assert.Equal(t, p.Summary, msg.Body)
}

func TestCompile_GeneratorFailureFallsBack(t *testing.T) {
	c := NewCompiler(stubGenerator{err: errors.New("model offline")}, scanner())

	msg := c.Compile(context.Background(), testPlan(), testIncident())
	assert.Equal(t, testPlan().Summary, msg.Body)
}

func TestCompile_GeneratorTimeoutFallsBack(t *testing.T) {
	c := NewCompiler(slowGenerator{delay: time.Second}, scanner())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	msg := c.Compile(ctx, testPlan(), testIncident())
	require.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, testPlan().Summary, msg.Body)
}

func TestHTTPGenerator_MissingCredential(t *testing.T) {
	g := NewHTTPGenerator("", "", time.Second)
	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)
}
