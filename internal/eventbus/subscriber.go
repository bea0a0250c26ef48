package eventbus

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

// Handler receives each well-formed event exactly as published.
type Handler func(evt *events.DetectionEvent)

// Subscribe consumes every event type under the subject root. Malformed
// or schema-invalid payloads are logged and dropped; a bad detector
// must not take down the pipeline consumer.
func Subscribe(conn *nats.Conn, subjectRoot string, h Handler) (*nats.Subscription, error) {
	if subjectRoot == "" {
		subjectRoot = "detections"
	}
	return conn.Subscribe(subjectRoot+".>", func(msg *nats.Msg) {
		var evt events.DetectionEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("[Bus] Dropping malformed payload on %s: %v", msg.Subject, err)
			return
		}
		if err := events.Validate(&evt); err != nil {
			log.Printf("[Bus] Dropping invalid event on %s: %v", msg.Subject, err)
			return
		}
		h(&evt)
	})
}
