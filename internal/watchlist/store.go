package watchlist

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrMissingSourceRef = errors.New("enrollment requires a source_ref justification")
	ErrEmptyEmbedding   = errors.New("enrollment requires a non-empty embedding")
)

// Entry is one enrolled identity. The store is append-only: there is
// no update or delete path; revocation needs a separate design.
type Entry struct {
	PersonID  string            `json:"person_id"`
	Label     string            `json:"label"`
	Embedding []float64         `json:"embedding"`
	AddedTS   time.Time         `json:"added_ts"`
	SourceRef string            `json:"source_ref"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ListedEntry is the externally visible shape. Embeddings never leave
// this package through any read API.
type ListedEntry struct {
	PersonID  string    `json:"person_id"`
	Label     string    `json:"label"`
	AddedTS   time.Time `json:"added_ts"`
	SourceRef string    `json:"source_ref"`
}

// Store persists enrollments as line-delimited JSON.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Enroll appends one entry. Every enrollment must carry its legal or
// administrative justification.
func (s *Store) Enroll(e Entry) error {
	if e.SourceRef == "" {
		return ErrMissingSourceRef
	}
	if len(e.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	if e.AddedTS.IsZero() {
		e.AddedTS = time.Now()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal watchlist entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("create watchlist dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open watchlist store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append watchlist entry: %w", err)
	}
	return nil
}

// LoadAll stream-parses the store. A malformed entry is skipped and
// logged; the rest of the gallery still loads.
func (s *Store) LoadAll() ([]Entry, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open watchlist store: %w", err)
	}
	defer f.Close()

	var entries []Entry
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	if skipped > 0 {
		log.Printf("[Watchlist] Skipped %d malformed entr(ies) in %s", skipped, s.path)
	}
	return entries, scanner.Err()
}

// List returns the redacted view of all enrollments.
func (s *Store) List() ([]ListedEntry, error) {
	entries, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	listed := make([]ListedEntry, 0, len(entries))
	for _, e := range entries {
		listed = append(listed, ListedEntry{
			PersonID:  e.PersonID,
			Label:     e.Label,
			AddedTS:   e.AddedTS,
			SourceRef: e.SourceRef,
		})
	}
	return listed, nil
}
