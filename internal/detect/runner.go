package detect

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
	"github.com/pauldevelopai/alibi-sub001/internal/metrics"
)

// Detector is one periodic detection task. Each registered detector
// runs on its own goroutine so a slow cycle in one (an embedding
// computation, say) never stalls the others.
type Detector interface {
	Name() string
	Interval() time.Duration
	Check(ctx context.Context) ([]*events.DetectionEvent, error)
}

// Publisher is the slice of the event bus the runner needs.
type Publisher interface {
	Publish(evt *events.DetectionEvent) error
}

// Runner schedules detectors and pushes their events onto the bus.
type Runner struct {
	pub       Publisher
	detectors []Detector

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRunner(pub Publisher) *Runner {
	return &Runner{
		pub:      pub,
		stopChan: make(chan struct{}),
	}
}

func (r *Runner) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

func (r *Runner) Start(ctx context.Context) {
	for _, d := range r.detectors {
		r.wg.Add(1)
		go r.runLoop(ctx, d)
	}
}

func (r *Runner) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}

func (r *Runner) runLoop(ctx context.Context, d Detector) {
	defer r.wg.Done()

	log.Printf("[Detect] %s loop started, interval %s", d.Name(), d.Interval())
	ticker := time.NewTicker(d.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.runCycle(ctx, d)
		}
	}
}

// runCycle executes one detector check. A failed cycle is logged and
// skipped; the loop proceeds to the next scheduled tick.
func (r *Runner) runCycle(ctx context.Context, d Detector) {
	cycleCtx, cancel := context.WithTimeout(ctx, d.Interval())
	defer cancel()

	evts, err := d.Check(cycleCtx)
	if err != nil {
		metrics.DetectorErrorsTotal.WithLabelValues(d.Name()).Inc()
		log.Printf("[Detect] %s cycle failed, skipping: %v", d.Name(), err)
		return
	}
	metrics.DetectorCyclesTotal.WithLabelValues(d.Name()).Inc()

	for _, evt := range evts {
		if err := events.Validate(evt); err != nil {
			log.Printf("[Detect] %s produced invalid event: %v", d.Name(), err)
			continue
		}
		if err := r.pub.Publish(evt); err != nil {
			log.Printf("[Detect] %s publish failed: %v", d.Name(), err)
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(string(evt.EventType)).Inc()
	}
}
