// Package runlog records a simulation run as a zstd-compressed JSONL
// stream: one start record, one line per event, one summary record. Each
// run gets its own directory keyed by a fresh run ID, so logs from
// repeated experiments never collide.
package runlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/parcelworks/logisim/internal/sim"
)

const fileName = "events.jsonl.zst"

// Record is one JSONL line. Type is "start", "event" or "summary".
type Record struct {
	Type string `json:"type"`

	RunID     string `json:"run_id,omitempty"`
	Scenario  string `json:"scenario,omitempty"`
	StartedAt string `json:"started_at,omitempty"`

	Tick      int    `json:"tick,omitempty"`
	Kind      string `json:"kind,omitempty"`
	AgentID   int    `json:"agent_id,omitempty"`
	Agent     string `json:"agent,omitempty"`
	From      [2]int `json:"from,omitempty"`
	To        [2]int `json:"to,omitempty"`
	PackageID int    `json:"package_id,omitempty"`
	Detail    string `json:"detail,omitempty"`

	Stats *sim.Stats `json:"stats,omitempty"`
}

// Writer persists one run. It implements sim.Observer; write failures are
// sticky and surface from Finish.
type Writer struct {
	runID string
	dir   string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error
}

// New creates <baseDir>/<runID>/events.jsonl.zst and writes the start
// record.
func New(baseDir, scenario string) (*Writer, error) {
	runID := uuid.NewString()
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &Writer{
		runID: runID,
		dir:   dir,
		f:     f,
		enc:   enc,
		w:     bufio.NewWriterSize(enc, 128*1024),
	}
	w.write(Record{
		Type:      "start",
		RunID:     runID,
		Scenario:  scenario,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
	return w, nil
}

func (w *Writer) RunID() string { return w.runID }
func (w *Writer) Dir() string   { return w.dir }

// Observe appends one event line.
func (w *Writer) Observe(e sim.Event) {
	w.write(Record{
		Type:      "event",
		Tick:      e.Tick,
		Kind:      e.Kind.String(),
		AgentID:   e.AgentID,
		Agent:     e.Agent,
		From:      [2]int{e.From.Row, e.From.Col},
		To:        [2]int{e.To.Row, e.To.Col},
		PackageID: e.PackageID,
		Detail:    e.Detail,
	})
}

// Finish writes the summary record and closes the stream. It reports the
// first error seen anywhere in the run.
func (w *Writer) Finish(stats sim.Stats) error {
	w.write(Record{Type: "summary", RunID: w.runID, Stats: &stats})

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w != nil {
		if err := w.w.Flush(); err != nil && w.err == nil {
			w.err = err
		}
		w.w = nil
	}
	if w.enc != nil {
		if err := w.enc.Close(); err != nil && w.err == nil {
			w.err = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err != nil && w.err == nil {
			w.err = err
		}
		w.f = nil
	}
	return w.err
}

func (w *Writer) write(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil || w.err != nil {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		w.err = err
		return
	}
	if _, err := w.w.Write(b); err != nil {
		w.err = err
		return
	}
	if err := w.w.WriteByte('\n'); err != nil {
		w.err = err
	}
}

// Read decodes every record from a finished run directory.
func Read(dir string) ([]Record, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var recs []Record
	jd := json.NewDecoder(dec)
	for jd.More() {
		var rec Record
		if err := jd.Decode(&rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
