package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pauldevelopai/alibi-sub001/internal/incident"
	"github.com/pauldevelopai/alibi-sub001/internal/plan"
)

// AlertMessage is the terminal output artifact. Written once, never
// mutated. The body carries neutral language only; anything else is a
// validator defect upstream, not something the compiler repairs.
type AlertMessage struct {
	AlertID      uuid.UUID         `json:"alert_id"`
	IncidentID   uuid.UUID         `json:"incident_id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	EvidenceRefs []string          `json:"evidence_refs"`
	PlanSnapshot plan.IncidentPlan `json:"plan_snapshot"`
	CreatedTS    time.Time         `json:"created_ts"`
}

// TextScanner re-applies the language denylists to generator output.
// Satisfied by the validator; a narrow interface keeps validation the
// single source of truth for wording rules.
type TextScanner interface {
	ScanText(text string, identitySensitive bool) []string
}

// Compiler produces the final alert from a plan that already passed
// validation. It does not re-validate the plan itself; the pipeline
// gates compilation on the validator's result.
type Compiler struct {
	gen     TextGenerator
	scanner TextScanner
}

func NewCompiler(gen TextGenerator, scanner TextScanner) *Compiler {
	if gen == nil {
		gen = DeterministicGenerator{}
	}
	return &Compiler{gen: gen, scanner: scanner}
}

func (c *Compiler) Compile(ctx context.Context, p plan.IncidentPlan, in incident.Incident) AlertMessage {
	msg := AlertMessage{
		AlertID:      uuid.New(),
		IncidentID:   in.IncidentID,
		Title:        buildTitle(in, p),
		Body:         p.Summary,
		EvidenceRefs: p.EvidenceRefs,
		PlanSnapshot: p,
		CreatedTS:    time.Now(),
	}

	// Optional elaboration. The external generator is best-effort: on
	// any failure, or if its text trips a denylist, the deterministic
	// summary stands alone and the alert still ships.
	extra, err := c.gen.Generate(ctx, elaborationPrompt(p, in))
	if err != nil {
		log.Printf("[Compiler] Text generator unavailable for incident %s: %v", in.IncidentID, err)
		return msg
	}
	if extra == "" {
		return msg
	}
	if violations := c.scanner.ScanText(extra, p.IdentitySensitive); len(violations) > 0 {
		log.Printf("[Compiler] Discarding generated text for incident %s: %v", in.IncidentID, violations)
		return msg
	}
	msg.Body = msg.Body + "\n\n" + extra

	return msg
}

// buildTitle names the situation by its driving event type and zone.
// The driving event is the highest-severity one; ties go to arrival
// order.
func buildTitle(in incident.Incident, p plan.IncidentPlan) string {
	driving := in.Events[0].EventType
	best := in.Events[0].Severity
	for i := range in.Events[1:] {
		if in.Events[i+1].Severity > best {
			best = in.Events[i+1].Severity
			driving = in.Events[i+1].EventType
		}
	}
	return fmt.Sprintf("Zone %s: %s activity (severity %d)", in.ZoneID, driving, p.Severity)
}

func elaborationPrompt(p plan.IncidentPlan, in incident.Incident) string {
	return fmt.Sprintf(
		"Write one short neutral sentence of operational context for this observation. Do not speculate about identity or intent. Observation: %s",
		p.Summary)
}
