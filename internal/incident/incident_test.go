package incident

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

func evt(zone string) *events.DetectionEvent {
	return &events.DetectionEvent{
		EventID:    uuid.New(),
		SourceID:   "cam-1",
		Timestamp:  time.Now(),
		ZoneID:     zone,
		EventType:  events.TypePersonDetected,
		Confidence: 0.8,
		Severity:   2,
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	in := &Incident{Status: StatusNew}

	require.NoError(t, in.Transition(StatusPlanBuilt))
	require.NoError(t, in.Transition(StatusBlocked))
	require.NoError(t, in.Transition(StatusPlanBuilt))
	require.NoError(t, in.Transition(StatusAlerted))

	// ALERTED is terminal.
	err := in.Transition(StatusPlanBuilt)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	err = in.Transition(StatusClosed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_Invalid(t *testing.T) {
	in := &Incident{Status: StatusNew}
	assert.ErrorIs(t, in.Transition(StatusAlerted), ErrInvalidTransition)
	assert.ErrorIs(t, in.Transition(StatusBlocked), ErrInvalidTransition)
}

func TestTransition_AnyActiveStateCanClose(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusPlanBuilt, StatusBlocked} {
		in := &Incident{Status: s}
		assert.NoError(t, in.Transition(StatusClosed), "from %s", s)
	}
}

func TestAggregator_GroupsSameZoneWithinWindow(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	first := a.Ingest(evt("z1"))
	second := a.Ingest(evt("z1"))

	assert.Equal(t, first.IncidentID, second.IncidentID)
	assert.Len(t, second.Events, 2)
}

func TestAggregator_SeparatesZones(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	first := a.Ingest(evt("z1"))
	second := a.Ingest(evt("z2"))

	assert.NotEqual(t, first.IncidentID, second.IncidentID)
}

func TestAggregator_NewIncidentAfterWindow(t *testing.T) {
	a := NewAggregator(time.Millisecond)

	first := a.Ingest(evt("z1"))
	time.Sleep(5 * time.Millisecond)
	second := a.Ingest(evt("z1"))

	assert.NotEqual(t, first.IncidentID, second.IncidentID)
}

func TestAggregator_TerminalIncidentNotReused(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	first := a.Ingest(evt("z1"))
	require.NoError(t, a.Transition(first.IncidentID, StatusPlanBuilt))
	require.NoError(t, a.Transition(first.IncidentID, StatusAlerted))

	second := a.Ingest(evt("z1"))
	assert.NotEqual(t, first.IncidentID, second.IncidentID)
}

func TestAggregator_Close(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	in := a.Ingest(evt("z1"))
	require.NoError(t, a.Close(in.IncidentID))
	assert.True(t, a.IsClosed(in.IncidentID))

	// Closing twice reports the terminal state.
	assert.ErrorIs(t, a.Close(in.IncidentID), ErrIncidentClosed)

	// New events in that zone open a fresh incident.
	next := a.Ingest(evt("z1"))
	assert.NotEqual(t, in.IncidentID, next.IncidentID)
}

func TestAggregator_ConfirmNoEvidence(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	in := a.Ingest(evt("z1"))
	assert.False(t, in.NoEvidenceConfirmed)

	require.NoError(t, a.ConfirmNoEvidence(in.IncidentID))
	stored, err := a.Get(in.IncidentID)
	require.NoError(t, err)
	assert.True(t, stored.NoEvidenceConfirmed)

	// Later ingests into the incident keep the confirmation.
	joined := a.Ingest(evt("z1"))
	require.Equal(t, in.IncidentID, joined.IncidentID)
	assert.True(t, joined.NoEvidenceConfirmed)

	assert.ErrorIs(t, a.ConfirmNoEvidence(uuid.New()), ErrNotFound)

	require.NoError(t, a.Close(in.IncidentID))
	assert.ErrorIs(t, a.ConfirmNoEvidence(in.IncidentID), ErrIncidentClosed)
}

func TestAggregator_SnapshotIsolation(t *testing.T) {
	a := NewAggregator(2 * time.Minute)

	snap := a.Ingest(evt("z1"))
	snap.Events[0].Confidence = 0.0 // mutating the copy

	stored, err := a.Get(snap.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, stored.Events[0].Confidence)
}

func TestAggregator_GetUnknown(t *testing.T) {
	a := NewAggregator(2 * time.Minute)
	_, err := a.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
