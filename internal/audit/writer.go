package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one processing cycle: the plan that was built, how
// validation went, and whether an alert was emitted. One JSON line per
// record; the file is never rewritten or truncated.
type Record struct {
	Timestamp      time.Time        `json:"timestamp"`
	IncidentID     uuid.UUID        `json:"incident_id"`
	Plan           PlanRecord       `json:"plan"`
	Validation     ValidationRecord `json:"validation"`
	AlertGenerated bool             `json:"alert_generated"`
}

type PlanRecord struct {
	Summary           string  `json:"summary"`
	Severity          int     `json:"severity"`
	Confidence        float64 `json:"confidence"`
	RecommendedAction string  `json:"recommended_action"`
	RequiresApproval  bool    `json:"requires_approval"`
}

type ValidationRecord struct {
	Status     string   `json:"status"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
}

// Writer appends records to a JSONL file. Appends are serialized under
// a mutex so concurrent detector contexts never interleave lines, and
// flushed per record so consumers can tail the file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
}

func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f)}, nil
}

func (w *Writer) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return w.buf.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		log.Printf("[Audit] Flush on close failed: %v", err)
	}
	return w.f.Close()
}
