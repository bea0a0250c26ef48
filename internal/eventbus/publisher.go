package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

// Publisher pushes detection events onto the bus with bounded retry.
type Publisher struct {
	conn        *nats.Conn
	subjectRoot string
	maxRetries  int
}

func NewPublisher(conn *nats.Conn, subjectRoot string, maxRetries int) *Publisher {
	if subjectRoot == "" {
		subjectRoot = "detections"
	}
	return &Publisher{
		conn:        conn,
		subjectRoot: subjectRoot,
		maxRetries:  maxRetries,
	}
}

// Subject is detections.<event_type>.<source_id>.
func (p *Publisher) Subject(evt *events.DetectionEvent) string {
	return fmt.Sprintf("%s.%s.%s", p.subjectRoot, evt.EventType, evt.SourceID)
}

func (p *Publisher) Publish(evt *events.DetectionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}

	subject := p.Subject(evt)
	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(subject, data)
		if err == nil {
			return nil
		}
		// Backoff
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}

	return fmt.Errorf("publish %s failed after %d retries: %w", subject, p.maxRetries, err)
}
