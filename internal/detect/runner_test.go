package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

type capturePublisher struct {
	mu   sync.Mutex
	evts []*events.DetectionEvent
}

func (p *capturePublisher) Publish(evt *events.DetectionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evts = append(p.evts, evt)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.evts)
}

type stubDetector struct {
	name     string
	interval time.Duration
	evts     []*events.DetectionEvent
	err      error

	mu     sync.Mutex
	cycles int
}

func (d *stubDetector) Name() string            { return d.name }
func (d *stubDetector) Interval() time.Duration { return d.interval }

func (d *stubDetector) Check(ctx context.Context) ([]*events.DetectionEvent, error) {
	d.mu.Lock()
	d.cycles++
	d.mu.Unlock()
	return d.evts, d.err
}

func (d *stubDetector) cycleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cycles
}

func stubEvent() *events.DetectionEvent {
	return &events.DetectionEvent{
		EventID:    uuid.New(),
		SourceID:   "cam-1",
		Timestamp:  time.Now(),
		ZoneID:     "z1",
		EventType:  events.TypeMotionDetected,
		Confidence: 0.8,
		Severity:   2,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within 2s")
}

func TestRunner_PublishesDetectorEvents(t *testing.T) {
	pub := &capturePublisher{}
	det := &stubDetector{name: "stub", interval: 10 * time.Millisecond, evts: []*events.DetectionEvent{stubEvent()}}

	r := NewRunner(pub)
	r.Register(det)
	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return pub.count() >= 2 })
	assert.GreaterOrEqual(t, det.cycleCount(), 2)
}

func TestRunner_ErrorCycleSkipsAndContinues(t *testing.T) {
	pub := &capturePublisher{}
	det := &stubDetector{name: "flaky", interval: 10 * time.Millisecond, err: errors.New("camera offline")}

	r := NewRunner(pub)
	r.Register(det)
	r.Start(context.Background())
	defer r.Stop()

	// The loop keeps ticking through failures without publishing.
	waitFor(t, func() bool { return det.cycleCount() >= 3 })
	assert.Zero(t, pub.count())
}

func TestRunner_DropsInvalidEvents(t *testing.T) {
	bad := stubEvent()
	bad.Severity = 9

	pub := &capturePublisher{}
	det := &stubDetector{name: "stub", interval: 10 * time.Millisecond, evts: []*events.DetectionEvent{bad}}

	r := NewRunner(pub)
	r.Register(det)
	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return det.cycleCount() >= 3 })
	assert.Zero(t, pub.count(), "schema-invalid events never reach the bus")
}

func TestRunner_StopHaltsLoops(t *testing.T) {
	pub := &capturePublisher{}
	det := &stubDetector{name: "stub", interval: 10 * time.Millisecond, evts: []*events.DetectionEvent{stubEvent()}}

	r := NewRunner(pub)
	r.Register(det)
	r.Start(context.Background())

	waitFor(t, func() bool { return pub.count() >= 1 })
	r.Stop()

	after := pub.count()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, pub.count())
}
