package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
)

var ErrNoEvents = errors.New("incident has no events")

// Builder turns an incident's event list into one IncidentPlan. Pure:
// same incident and thresholds in, same plan out (modulo BuiltTS).
type Builder struct {
	cfg config.ThresholdConfig
}

func NewBuilder(cfg config.ThresholdConfig) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Build(in incident.Incident) (IncidentPlan, error) {
	if len(in.Events) == 0 {
		return IncidentPlan{}, ErrNoEvents
	}

	severity := aggregateSeverity(in)
	confidence := aggregateConfidence(in)
	sensitive := in.HasIdentitySensitiveEvent()
	refs := collectEvidence(in)

	p := IncidentPlan{
		IncidentID:        in.IncidentID,
		Severity:          severity,
		Confidence:        confidence,
		EvidenceRefs:      refs,
		IdentitySensitive: sensitive,
		BuiltTS:           time.Now(),
	}

	// Decision table. Order matters: low confidence always wins, then
	// the approval triggers. Bare dispatch is never produced here; it
	// only exists past an explicit human approval outside this core.
	switch {
	case confidence < b.cfg.NotifyConfidence:
		p.RecommendedAction = ActionMonitor
	case severity >= b.cfg.HighSeverity || sensitive:
		p.RecommendedAction = ActionDispatchPendingReview
		p.RequiresHumanApproval = true
	default:
		p.RecommendedAction = ActionNotify
	}

	// The no-evidence sentence is only rendered on explicit operator
	// confirmation. An evidence-less plan without it fails the evidence
	// rule and blocks; attaching media or confirming absence is the
	// resubmission path, never a builder default.
	p.Summary = buildSummary(in, severity, confidence, sensitive, len(refs) == 0 && in.NoEvidenceConfirmed)
	return p, nil
}

func aggregateSeverity(in incident.Incident) int {
	max := 0
	for i := range in.Events {
		if in.Events[i].Severity > max {
			max = in.Events[i].Severity
		}
	}
	return max
}

// aggregateConfidence is deliberately conservative: a single event
// speaks for itself; with several, we take the minimum of the two
// highest confidences so unrelated noise can neither inflate nor drown
// the driving event.
func aggregateConfidence(in incident.Incident) float64 {
	if len(in.Events) == 1 {
		return in.Events[0].Confidence
	}
	confs := make([]float64, len(in.Events))
	for i := range in.Events {
		confs[i] = in.Events[i].Confidence
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(confs)))
	return confs[1]
}

func collectEvidence(in incident.Incident) []string {
	var refs []string
	for i := range in.Events {
		refs = append(refs, in.Events[i].EvidenceRefs()...)
	}
	return lo.Uniq(refs)
}

// buildSummary renders the fixed neutral template. It enumerates only
// structured fields (types, counts, severities, confidences) and never
// interpolates metadata strings, which may carry detector-authored
// language we cannot vouch for.
func buildSummary(in incident.Incident, severity int, confidence float64, sensitive, confirmedNoEvidence bool) string {
	counts := make(map[string]int)
	var order []string
	for i := range in.Events {
		t := string(in.Events[i].EventType)
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%s x%d", t, counts[t]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated observation for zone %s: %d event(s) recorded (%s).",
		in.ZoneID, len(in.Events), strings.Join(parts, ", "))
	fmt.Fprintf(&sb, " Maximum severity %d of 5. Aggregate confidence %.2f.", severity, confidence)

	if sensitive {
		sb.WriteString(" A possible watchlist match was scored against enrolled records; the result is a similarity score only and requires verification by an operator.")
	}
	if confirmedNoEvidence {
		sb.WriteString(" " + NoEvidenceStatement)
	}

	return sb.String()
}
