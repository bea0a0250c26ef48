package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	TypePersonDetected   EventType = "person_detected"
	TypeVehicleDetected  EventType = "vehicle_detected"
	TypeWatchlistMatch   EventType = "watchlist_match"
	TypeRedLightViolation EventType = "red_light_violation"
	TypeMotionDetected   EventType = "motion_detected"
)

var knownTypes = map[EventType]bool{
	TypePersonDetected:    true,
	TypeVehicleDetected:   true,
	TypeWatchlistMatch:    true,
	TypeRedLightViolation: true,
	TypeMotionDetected:    true,
}

// DetectionEvent is the immutable record a detector emits. Never
// mutated after creation; the aggregator only appends it to incidents.
type DetectionEvent struct {
	EventID     uuid.UUID       `json:"event_id"`
	SourceID    string          `json:"source_id"`
	Timestamp   time.Time       `json:"timestamp"`
	ZoneID      string          `json:"zone_id"`
	EventType   EventType       `json:"event_type"`
	Confidence  float64         `json:"confidence"`
	Severity    int             `json:"severity"`
	ClipURL     string          `json:"clip_url,omitempty"`
	SnapshotURL string          `json:"snapshot_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Candidate is one ranked watchlist gallery hit. Scores are cosine
// similarities, never identity claims.
type Candidate struct {
	PersonID string  `json:"person_id"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

// WatchlistMeta is the typed metadata payload for watchlist_match events.
type WatchlistMeta struct {
	Candidates  []Candidate `json:"candidates"`
	FaceCropRef string      `json:"face_crop_ref,omitempty"`
}

// TrafficMeta is the typed metadata payload for red_light_violation events.
type TrafficMeta struct {
	LightState string `json:"light_state"`
	PlateRef   string `json:"plate_ref,omitempty"`
}

// Validate enforces the wire schema before an event enters the pipeline.
func Validate(e *DetectionEvent) error {
	if e.EventID == uuid.Nil {
		return fmt.Errorf("event missing event_id")
	}
	if e.SourceID == "" {
		return fmt.Errorf("event %s missing source_id", e.EventID)
	}
	if !knownTypes[e.EventType] {
		return fmt.Errorf("event %s has unknown event_type %q", e.EventID, e.EventType)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("event %s confidence %v out of [0,1]", e.EventID, e.Confidence)
	}
	if e.Severity < 1 || e.Severity > 5 {
		return fmt.Errorf("event %s severity %d out of 1..5", e.EventID, e.Severity)
	}
	return nil
}

// WatchlistCandidates decodes the ranked candidate list, if this event
// carries one. The pipeline uses this capability check instead of
// branching on event types.
func (e *DetectionEvent) WatchlistCandidates() []Candidate {
	if e.EventType != TypeWatchlistMatch || len(e.Metadata) == 0 {
		return nil
	}
	var meta WatchlistMeta
	if err := json.Unmarshal(e.Metadata, &meta); err != nil {
		return nil
	}
	return meta.Candidates
}

// IsIdentitySensitive reports whether this event triggers the
// human-approval and qualified-language rules downstream.
func (e *DetectionEvent) IsIdentitySensitive() bool {
	return e.EventType == TypeWatchlistMatch
}

// EvidenceRefs returns the non-empty media references on this event,
// clip first, in a stable order.
func (e *DetectionEvent) EvidenceRefs() []string {
	var refs []string
	if e.ClipURL != "" {
		refs = append(refs, e.ClipURL)
	}
	if e.SnapshotURL != "" {
		refs = append(refs, e.SnapshotURL)
	}
	return refs
}

// ClipRef and SnapshotRef build evidence URLs following the fixed
// storage convention. The pipeline only propagates these strings.
func ClipRef(base string, eventID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/clips/%s.%s", base, eventID, ext)
}

func SnapshotRef(base string, eventID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/snapshots/%s.%s", base, eventID, ext)
}

func FaceCropRef(base string, ts time.Time, seq int, ext string) string {
	return fmt.Sprintf("%s/face_crops/%d_%d.%s", base, ts.Unix(), seq, ext)
}
