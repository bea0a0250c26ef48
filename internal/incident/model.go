package incident

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusPlanBuilt Status = "PLAN_BUILT"
	StatusAlerted   Status = "ALERTED"
	StatusBlocked   Status = "BLOCKED"
	StatusClosed    Status = "CLOSED"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIncidentClosed    = errors.New("incident is closed")
	ErrNotFound          = errors.New("incident not found")
)

// allowed transitions; ALERTED and CLOSED are terminal for this core.
var transitions = map[Status][]Status{
	StatusNew:       {StatusPlanBuilt, StatusClosed},
	StatusPlanBuilt: {StatusPlanBuilt, StatusAlerted, StatusBlocked, StatusClosed},
	StatusBlocked:   {StatusPlanBuilt, StatusClosed},
	StatusAlerted:   {},
	StatusClosed:    {},
}

// Incident aggregates one or more detection events into a single
// operator-facing situation. Owned by the Aggregator; after creation
// the only permitted mutations are status transitions and event
// appends.
type Incident struct {
	IncidentID uuid.UUID               `json:"incident_id"`
	Status     Status                  `json:"status"`
	ZoneID     string                  `json:"zone_id"`
	CreatedTS  time.Time               `json:"created_ts"`
	UpdatedTS  time.Time               `json:"updated_ts"`
	Events     []events.DetectionEvent `json:"events"`
	Notes      string                  `json:"notes,omitempty"`
	// NoEvidenceConfirmed records an operator's explicit statement that
	// no media exists for this incident. Only then does the plan summary
	// carry the no-evidence sentence the evidence rule accepts; absent
	// this, an evidence-less plan blocks.
	NoEvidenceConfirmed bool `json:"no_evidence_confirmed,omitempty"`
}

// Transition moves the incident to next if the state machine allows it.
func (in *Incident) Transition(next Status) error {
	for _, s := range transitions[in.Status] {
		if s == next {
			in.Status = next
			in.UpdatedTS = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, in.Status, next)
}

func (in *Incident) IsTerminal() bool {
	return in.Status == StatusAlerted || in.Status == StatusClosed
}

// HasIdentitySensitiveEvent reports whether any event requires the
// watchlist handling rules downstream.
func (in *Incident) HasIdentitySensitiveEvent() bool {
	for i := range in.Events {
		if in.Events[i].IsIdentitySensitive() {
			return true
		}
	}
	return false
}
