package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/pauldevelopai/alibi-sub001/internal/alert"
	"github.com/pauldevelopai/alibi-sub001/internal/audit"
	"github.com/pauldevelopai/alibi-sub001/internal/events"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
	"github.com/pauldevelopai/alibi-sub001/internal/metrics"
	"github.com/pauldevelopai/alibi-sub001/internal/plan"
	"github.com/pauldevelopai/alibi-sub001/internal/validate"
)

// Broadcaster delivers a compiled alert to whoever is listening. The
// websocket feed hub satisfies this; tests use a capture stub.
type Broadcaster interface {
	Broadcast(msg alert.AlertMessage)
}

// Auditor records one processing cycle. Satisfied by *audit.Writer.
type Auditor interface {
	Append(rec audit.Record) error
}

// Pipeline is the synchronous chain Events -> Incident -> Plan ->
// Validation -> Alert -> Log. It runs inline in whichever context
// receives an event; the only side effects are the audit append and
// the alert broadcast, and nothing downstream of the validator runs
// unless validation passes.
type Pipeline struct {
	agg       *incident.Aggregator
	builder   *plan.Builder
	validator *validate.Validator
	compiler  *alert.Compiler
	cooldown  *alert.Cooldown
	auditor   Auditor
	feed      Broadcaster
	dedup     *events.Dedup
}

func New(
	agg *incident.Aggregator,
	builder *plan.Builder,
	validator *validate.Validator,
	compiler *alert.Compiler,
	cooldown *alert.Cooldown,
	auditor Auditor,
	feed Broadcaster,
	dedup *events.Dedup,
) *Pipeline {
	return &Pipeline{
		agg:       agg,
		builder:   builder,
		validator: validator,
		compiler:  compiler,
		cooldown:  cooldown,
		auditor:   auditor,
		feed:      feed,
		dedup:     dedup,
	}
}

// Process runs one full cycle for an incoming event. Errors in the
// chain are logged, never surfaced to operators as raw internals;
// operators only see compiled alerts or itemized validation reports.
func (p *Pipeline) Process(ctx context.Context, evt *events.DetectionEvent) {
	if p.dedup != nil && p.dedup.IsDuplicate(events.DedupKey(evt)) {
		metrics.EventsDedupedTotal.Inc()
		return
	}

	in := p.agg.Ingest(evt)
	if in.Status == incident.StatusClosed {
		// Closed externally; no further cycles for this incident.
		return
	}

	if err := p.agg.Transition(in.IncidentID, incident.StatusPlanBuilt); err != nil {
		log.Printf("[ERROR] Pipeline: incident %s cannot enter planning: %v", in.IncidentID, err)
		return
	}
	in.Status = incident.StatusPlanBuilt

	pl, err := p.builder.Build(in)
	if err != nil {
		log.Printf("[ERROR] Pipeline: plan build for incident %s: %v", in.IncidentID, err)
		return
	}
	metrics.PlansBuiltTotal.WithLabelValues(string(pl.RecommendedAction)).Inc()

	result := p.validator.Validate(pl, in)
	metrics.ValidationTotal.WithLabelValues(result.Status).Inc()
	metrics.ViolationsTotal.Add(float64(len(result.Violations)))

	alertGenerated := false
	if result.Passed {
		alertGenerated = p.emit(ctx, pl, in)
	} else {
		log.Printf("[Pipeline] Incident %s blocked: %d violation(s)", in.IncidentID, len(result.Violations))
		if err := p.agg.Transition(in.IncidentID, incident.StatusBlocked); err != nil {
			log.Printf("[ERROR] Pipeline: incident %s block transition: %v", in.IncidentID, err)
		}
	}

	p.record(in, pl, result, alertGenerated)
}

// emit runs the post-validation tail: cancellation check, zone
// cooldown, compile, broadcast, status transition.
func (p *Pipeline) emit(ctx context.Context, pl plan.IncidentPlan, in incident.Incident) bool {
	// The current cycle of a closed incident may complete and log, but
	// its alert must not go out.
	if p.agg.IsClosed(in.IncidentID) {
		return false
	}

	if p.cooldown != nil && !p.cooldown.Allow(ctx, in.ZoneID) {
		metrics.AlertsSuppressedTotal.Inc()
		log.Printf("[Pipeline] Alert for incident %s suppressed by zone cooldown", in.IncidentID)
		return false
	}

	msg := p.compiler.Compile(ctx, pl, in)
	if p.feed != nil {
		p.feed.Broadcast(msg)
	}
	metrics.AlertsEmittedTotal.Inc()

	if err := p.agg.Transition(in.IncidentID, incident.StatusAlerted); err != nil {
		log.Printf("[ERROR] Pipeline: incident %s alert transition: %v", in.IncidentID, err)
	}
	return true
}

func (p *Pipeline) record(in incident.Incident, pl plan.IncidentPlan, result validate.ValidationResult, alertGenerated bool) {
	rec := audit.Record{
		Timestamp:  time.Now(),
		IncidentID: in.IncidentID,
		Plan: audit.PlanRecord{
			Summary:           pl.Summary,
			Severity:          pl.Severity,
			Confidence:        pl.Confidence,
			RecommendedAction: string(pl.RecommendedAction),
			RequiresApproval:  pl.RequiresHumanApproval,
		},
		Validation: audit.ValidationRecord{
			Status:     result.Status,
			Passed:     result.Passed,
			Violations: result.Violations,
		},
		AlertGenerated: alertGenerated,
	}
	if err := p.auditor.Append(rec); err != nil {
		log.Printf("[ERROR] Pipeline: audit append for incident %s: %v", in.IncidentID, err)
	}
}
