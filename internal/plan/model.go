package plan

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionMonitor               Action = "monitor"
	ActionNotify                Action = "notify"
	ActionDispatch              Action = "dispatch"
	ActionDispatchPendingReview Action = "dispatch_pending_review"
)

// NoEvidenceStatement is the exact sentence the builder renders once an
// operator has confirmed that no media exists for the incident. The
// evidence rule accepts it as the explicit alternative to evidence_refs.
const NoEvidenceStatement = "No clip or snapshot is available for this incident."

// IncidentPlan is the deterministic recommendation derived from an
// incident. Immutable once built; rebuilding after correction yields a
// fresh plan.
type IncidentPlan struct {
	IncidentID            uuid.UUID `json:"incident_id"`
	Summary               string    `json:"summary"`
	Severity              int       `json:"severity"`
	Confidence            float64   `json:"confidence"`
	RecommendedAction     Action    `json:"recommended_action"`
	RequiresHumanApproval bool      `json:"requires_human_approval"`
	EvidenceRefs          []string  `json:"evidence_refs"`
	// IdentitySensitive records that a watchlist match contributed to
	// this plan, so the validator applies the stricter language rule.
	IdentitySensitive bool      `json:"identity_sensitive"`
	BuiltTS           time.Time `json:"built_ts"`
}
