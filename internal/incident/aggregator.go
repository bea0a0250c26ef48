package incident

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

// Aggregator groups detection events into incidents. An event joins
// the most recent open incident for its zone if that incident was
// updated within the group window; otherwise it opens a new one.
type Aggregator struct {
	mu          sync.Mutex
	groupWindow time.Duration
	incidents   map[uuid.UUID]*Incident
	openByZone  map[string]uuid.UUID
}

func NewAggregator(groupWindow time.Duration) *Aggregator {
	return &Aggregator{
		groupWindow: groupWindow,
		incidents:   make(map[uuid.UUID]*Incident),
		openByZone:  make(map[string]uuid.UUID),
	}
}

// Ingest appends the event to its incident, creating one if needed.
// Returns a copy of the incident's current state for downstream
// processing; the aggregator retains ownership of the original.
func (a *Aggregator) Ingest(evt *events.DetectionEvent) Incident {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()

	if id, ok := a.openByZone[evt.ZoneID]; ok {
		in := a.incidents[id]
		if !in.IsTerminal() && now.Sub(in.UpdatedTS) <= a.groupWindow {
			in.Events = append(in.Events, *evt)
			in.UpdatedTS = now
			return snapshot(in)
		}
		delete(a.openByZone, evt.ZoneID)
	}

	in := &Incident{
		IncidentID: uuid.New(),
		Status:     StatusNew,
		ZoneID:     evt.ZoneID,
		CreatedTS:  now,
		UpdatedTS:  now,
		Events:     []events.DetectionEvent{*evt},
	}
	a.incidents[in.IncidentID] = in
	a.openByZone[evt.ZoneID] = in.IncidentID
	return snapshot(in)
}

// Get returns a copy of the incident, or ErrNotFound.
func (a *Aggregator) Get(id uuid.UUID) (Incident, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	in, ok := a.incidents[id]
	if !ok {
		return Incident{}, ErrNotFound
	}
	return snapshot(in), nil
}

// Transition applies a status change under the aggregator's lock.
func (a *Aggregator) Transition(id uuid.UUID, next Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	in, ok := a.incidents[id]
	if !ok {
		return ErrNotFound
	}
	if err := in.Transition(next); err != nil {
		return err
	}
	if in.IsTerminal() {
		if open, ok := a.openByZone[in.ZoneID]; ok && open == id {
			delete(a.openByZone, in.ZoneID)
		}
	}
	return nil
}

// Close terminates the incident via operator action. In-flight work on
// the current cycle is allowed to finish; no further cycles run.
func (a *Aggregator) Close(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	in, ok := a.incidents[id]
	if !ok {
		return ErrNotFound
	}
	if in.Status == StatusClosed {
		return ErrIncidentClosed
	}
	if err := in.Transition(StatusClosed); err != nil {
		return err
	}
	if open, ok := a.openByZone[in.ZoneID]; ok && open == id {
		delete(a.openByZone, in.ZoneID)
	}
	return nil
}

// ConfirmNoEvidence marks the incident as explicitly evidence-less on
// operator authority. This is the correction path for a plan blocked by
// the evidence rule: confirm, then let the next cycle rebuild.
func (a *Aggregator) ConfirmNoEvidence(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	in, ok := a.incidents[id]
	if !ok {
		return ErrNotFound
	}
	if in.Status == StatusClosed {
		return ErrIncidentClosed
	}
	in.NoEvidenceConfirmed = true
	in.UpdatedTS = time.Now()
	return nil
}

// IsClosed reports whether the incident has been closed externally.
func (a *Aggregator) IsClosed(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	in, ok := a.incidents[id]
	return ok && in.Status == StatusClosed
}

func snapshot(in *Incident) Incident {
	cp := *in
	cp.Events = make([]events.DetectionEvent, len(in.Events))
	copy(cp.Events, in.Events)
	return cp
}
