package plan

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/events"
	"github.com/pauldevelopai/alibi-sub001/internal/incident"
)

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{NotifyConfidence: 0.75, HighSeverity: 4}
}

func makeIncident(evts ...events.DetectionEvent) incident.Incident {
	return incident.Incident{
		IncidentID: uuid.New(),
		Status:     incident.StatusNew,
		ZoneID:     "zone-7",
		CreatedTS:  time.Now(),
		UpdatedTS:  time.Now(),
		Events:     evts,
	}
}

func makeEvent(confidence float64, severity int) events.DetectionEvent {
	return events.DetectionEvent{
		EventID:    uuid.New(),
		SourceID:   "cam-1",
		Timestamp:  time.Now(),
		ZoneID:     "zone-7",
		EventType:  events.TypePersonDetected,
		Confidence: confidence,
		Severity:   severity,
	}
}

func TestBuild_NoEvents(t *testing.T) {
	b := NewBuilder(testThresholds())
	_, err := b.Build(makeIncident())
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestBuild_AggregateConfidence(t *testing.T) {
	// Conservative combination: single event keeps its confidence,
	// multiple events take the min of the two highest.
	tests := []struct {
		name  string
		confs []float64
		want  float64
	}{
		{"single", []float64{0.9}, 0.9},
		{"three events", []float64{0.9, 0.8, 0.3}, 0.8},
		{"equal pair", []float64{0.95, 0.95}, 0.95},
		{"unordered pair", []float64{0.6, 0.9}, 0.6},
	}

	b := NewBuilder(testThresholds())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var evts []events.DetectionEvent
			for _, c := range tc.confs {
				evts = append(evts, makeEvent(c, 2))
			}
			p, err := b.Build(makeIncident(evts...))
			require.NoError(t, err)
			assert.InDelta(t, tc.want, p.Confidence, 1e-9)
		})
	}
}

func TestBuild_AggregateSeverityIsMax(t *testing.T) {
	b := NewBuilder(testThresholds())
	p, err := b.Build(makeIncident(makeEvent(0.9, 1), makeEvent(0.9, 3), makeEvent(0.9, 2)))
	require.NoError(t, err)
	assert.Equal(t, 3, p.Severity)
}

func TestBuild_DecisionTable(t *testing.T) {
	tests := []struct {
		name         string
		confidence   float64
		severity     int
		watchlist    bool
		wantAction   Action
		wantApproval bool
	}{
		{"low confidence monitors", 0.5, 3, false, ActionMonitor, false},
		{"low confidence beats severity", 0.5, 5, false, ActionMonitor, false},
		{"confident mid severity notifies", 0.85, 3, false, ActionNotify, false},
		{"high severity needs review", 0.85, 5, false, ActionDispatchPendingReview, true},
		{"severity at threshold needs review", 0.85, 4, false, ActionDispatchPendingReview, true},
		{"watchlist needs review", 0.85, 2, true, ActionDispatchPendingReview, true},
		{"exactly at confidence threshold notifies", 0.75, 3, false, ActionNotify, false},
	}

	b := NewBuilder(testThresholds())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt := makeEvent(tc.confidence, tc.severity)
			if tc.watchlist {
				evt.EventType = events.TypeWatchlistMatch
				meta, _ := json.Marshal(events.WatchlistMeta{
					Candidates: []events.Candidate{{PersonID: "p1", Label: "entry-1", Score: tc.confidence}},
				})
				evt.Metadata = meta
			}
			p, err := b.Build(makeIncident(evt))
			require.NoError(t, err)
			assert.Equal(t, tc.wantAction, p.RecommendedAction)
			assert.Equal(t, tc.wantApproval, p.RequiresHumanApproval)
		})
	}
}

func TestBuild_NeverEmitsBareDispatch(t *testing.T) {
	b := NewBuilder(testThresholds())
	for _, conf := range []float64{0.1, 0.5, 0.75, 0.9, 1.0} {
		for sev := 1; sev <= 5; sev++ {
			p, err := b.Build(makeIncident(makeEvent(conf, sev)))
			require.NoError(t, err)
			assert.NotEqual(t, ActionDispatch, p.RecommendedAction,
				"conf=%v sev=%d produced bare dispatch", conf, sev)
		}
	}
}

func TestBuild_EvidenceCollected(t *testing.T) {
	e1 := makeEvent(0.9, 3)
	e1.ClipURL = "https://media/clips/a.mp4"
	e1.SnapshotURL = "https://media/snapshots/a.jpg"
	e2 := makeEvent(0.9, 3)
	e2.ClipURL = "https://media/clips/a.mp4" // duplicate
	e2.SnapshotURL = "https://media/snapshots/b.jpg"

	b := NewBuilder(testThresholds())
	p, err := b.Build(makeIncident(e1, e2))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://media/clips/a.mp4",
		"https://media/snapshots/a.jpg",
		"https://media/snapshots/b.jpg",
	}, p.EvidenceRefs)
}

func TestBuild_NoEvidenceStatementNeedsConfirmation(t *testing.T) {
	b := NewBuilder(testThresholds())

	// Without operator confirmation the statement is never rendered; the
	// evidence rule downstream blocks the plan instead.
	in := makeIncident(makeEvent(0.9, 3))
	p, err := b.Build(in)
	require.NoError(t, err)
	assert.Empty(t, p.EvidenceRefs)
	assert.NotContains(t, p.Summary, NoEvidenceStatement)

	in.NoEvidenceConfirmed = true
	p, err = b.Build(in)
	require.NoError(t, err)
	assert.Contains(t, p.Summary, NoEvidenceStatement)
}

func TestBuild_ConfirmationIgnoredWhenEvidenceExists(t *testing.T) {
	evt := makeEvent(0.9, 3)
	evt.ClipURL = "https://media/clips/a.mp4"
	in := makeIncident(evt)
	in.NoEvidenceConfirmed = true

	b := NewBuilder(testThresholds())
	p, err := b.Build(in)
	require.NoError(t, err)
	assert.NotContains(t, p.Summary, NoEvidenceStatement)
}

func TestBuild_SummaryIgnoresMetadataText(t *testing.T) {
	// Detector-authored metadata must never leak into the summary.
	evt := makeEvent(0.9, 3)
	evt.Metadata = json.RawMessage(`{"note":"the suspect was seen climbing the fence"}`)

	b := NewBuilder(testThresholds())
	p, err := b.Build(makeIncident(evt))
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(p.Summary), "suspect")
}

func TestBuild_WatchlistSummaryQualified(t *testing.T) {
	evt := makeEvent(0.9, 2)
	evt.EventType = events.TypeWatchlistMatch

	b := NewBuilder(testThresholds())
	p, err := b.Build(makeIncident(evt))
	require.NoError(t, err)
	assert.True(t, p.IdentitySensitive)
	assert.Contains(t, strings.ToLower(p.Summary), "possible watchlist match")
	assert.Contains(t, strings.ToLower(p.Summary), "requires verification")
}
