package watchlist

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pauldevelopai/alibi-sub001/internal/config"
	"github.com/pauldevelopai/alibi-sub001/internal/events"
)

// FrameSource hands out the most recent frame for a camera. Capture
// and decoding live outside this core.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// matchSeverity is fixed for watchlist events: high enough that the
// plan builder always routes them through pending review, which rule 3
// demands for identity-sensitive incidents anyway.
const matchSeverity = 4

// Matcher runs the periodic watchlist cycle: detect a face, embed it,
// score it against the gallery snapshot, and emit a possible-match
// event. It makes no approval or wording decisions; those belong to
// the validator downstream.
type Matcher struct {
	cfg      config.WatchlistConfig
	gallery  *Gallery
	source   FrameSource
	sourceID string
	zoneID   string
	seq      atomic.Int64
}

func NewMatcher(cfg config.WatchlistConfig, gallery *Gallery, source FrameSource, sourceID, zoneID string) *Matcher {
	return &Matcher{
		cfg:      cfg,
		gallery:  gallery,
		source:   source,
		sourceID: sourceID,
		zoneID:   zoneID,
	}
}

func (m *Matcher) Name() string            { return "watchlist" }
func (m *Matcher) Interval() time.Duration { return m.cfg.CheckInterval }

// Check runs one cycle. A frame or face-detection failure skips the
// cycle; the loop proceeds on schedule. No face above the confidence
// floor, or no gallery score above the match threshold, means no event.
func (m *Matcher) Check(ctx context.Context) ([]*events.DetectionEvent, error) {
	frame, err := m.source.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("frame fetch: %w", err)
	}

	face, ok := DetectFace(frame)
	if !ok || face.Confidence < m.cfg.FaceFloor {
		return nil, nil
	}

	crop := Crop(frame, face.Rect)
	probe := Embed(crop)

	candidates := m.Match(probe)
	if len(candidates) == 0 {
		return nil, nil
	}

	cropRef := m.saveCrop(crop)

	meta, err := json.Marshal(events.WatchlistMeta{
		Candidates:  candidates,
		FaceCropRef: cropRef,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal match metadata: %w", err)
	}

	evt := &events.DetectionEvent{
		EventID:     uuid.New(),
		SourceID:    m.sourceID,
		Timestamp:   time.Now(),
		ZoneID:      m.zoneID,
		EventType:   events.TypeWatchlistMatch,
		Confidence:  candidates[0].Score,
		Severity:    matchSeverity,
		SnapshotURL: cropRef,
		Metadata:    meta,
	}
	return []*events.DetectionEvent{evt}, nil
}

// Match scores the probe against the current gallery snapshot and
// returns at most TopK candidates at or above the match threshold,
// sorted descending by score.
func (m *Matcher) Match(probe []float64) []events.Candidate {
	snap := m.gallery.Current()

	var candidates []events.Candidate
	for i := range snap.Entries {
		score := CosineSimilarity(probe, snap.Entries[i].Embedding)
		if score >= m.cfg.MatchThreshold {
			candidates = append(candidates, events.Candidate{
				PersonID: snap.Entries[i].PersonID,
				Label:    snap.Entries[i].Label,
				Score:    score,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > m.cfg.TopK {
		candidates = candidates[:m.cfg.TopK]
	}
	return candidates
}

// saveCrop persists the face crop and returns its evidence reference,
// or "" when saving fails. A missing crop is not fatal here; the
// evidence rule downstream decides what that means for the plan.
func (m *Matcher) saveCrop(crop image.Image) string {
	seq := int(m.seq.Add(1))
	ref := events.FaceCropRef(m.cfg.FaceCropDir, time.Now(), seq, "jpg")

	if err := os.MkdirAll(filepath.Dir(ref), 0750); err != nil {
		log.Printf("[Matcher] Cannot create crop dir: %v", err)
		return ""
	}
	f, err := os.Create(ref)
	if err != nil {
		log.Printf("[Matcher] Cannot save face crop: %v", err)
		return ""
	}
	defer f.Close()

	if err := jpeg.Encode(f, crop, &jpeg.Options{Quality: 85}); err != nil {
		log.Printf("[Matcher] Face crop encode failed: %v", err)
		return ""
	}
	return ref
}
