// Package rundb keeps a SQLite index of simulation runs: one row per run
// plus per-tick counter snapshots, queryable across experiments. The
// authoritative event stream lives in runlog; this index exists for
// cheap cross-run comparisons.
package rundb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parcelworks/logisim/internal/sim"
)

type DB struct {
	db *sql.DB
}

// RunSummary is one finished (or still running) run.
type RunSummary struct {
	RunID      string
	Scenario   string
	StartedAt  string
	FinishedAt string
	Ticks      int
	Moves      int
	Dropoffs   int
	Delivered  int
	Packages   int
	Deadlocks  int
	ElapsedMs  int64
}

// TickRow is one per-tick snapshot of the cumulative counters.
type TickRow struct {
	Tick  int
	Stats sim.Stats
}

// Open creates or opens the index database.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("rundb: empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL suits the append-only write pattern of a run recorder.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
  run_id       TEXT PRIMARY KEY,
  scenario     TEXT NOT NULL,
  started_at   TEXT NOT NULL,
  finished_at  TEXT,
  ticks        INTEGER NOT NULL DEFAULT 0,
  moves        INTEGER NOT NULL DEFAULT 0,
  blocks       INTEGER NOT NULL DEFAULT 0,
  turns        INTEGER NOT NULL DEFAULT 0,
  pickups      INTEGER NOT NULL DEFAULT 0,
  dropoffs     INTEGER NOT NULL DEFAULT 0,
  yields       INTEGER NOT NULL DEFAULT 0,
  retreats     INTEGER NOT NULL DEFAULT 0,
  emergencies  INTEGER NOT NULL DEFAULT 0,
  deadlocks    INTEGER NOT NULL DEFAULT 0,
  anomalies    INTEGER NOT NULL DEFAULT 0,
  delivered    INTEGER NOT NULL DEFAULT 0,
  packages     INTEGER NOT NULL DEFAULT 0,
  elapsed_ms   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tick_stats (
  run_id       TEXT NOT NULL REFERENCES runs(run_id),
  tick         INTEGER NOT NULL,
  moves        INTEGER NOT NULL,
  blocks       INTEGER NOT NULL,
  turns        INTEGER NOT NULL,
  pickups      INTEGER NOT NULL,
  dropoffs     INTEGER NOT NULL,
  yields       INTEGER NOT NULL,
  retreats     INTEGER NOT NULL,
  emergencies  INTEGER NOT NULL,
  deadlocks    INTEGER NOT NULL,
  anomalies    INTEGER NOT NULL,
  PRIMARY KEY (run_id, tick)
);`
	_, err := db.Exec(schema)
	return err
}

func (d *DB) Close() error { return d.db.Close() }

// StartRun registers a run before its first tick.
func (d *DB) StartRun(runID, scenario string, startedAt time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO runs (run_id, scenario, started_at) VALUES (?, ?, ?)`,
		runID, scenario, startedAt.UTC().Format(time.RFC3339))
	return err
}

// RecordTick stores the cumulative counters after one tick.
func (d *DB) RecordTick(runID string, tick int, s sim.Stats) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO tick_stats
		 (run_id, tick, moves, blocks, turns, pickups, dropoffs,
		  yields, retreats, emergencies, deadlocks, anomalies)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, tick, s.Moves, s.Blocks, s.Turns, s.Pickups, s.Dropoffs,
		s.Yields, s.Retreats, s.Emergencies, s.DeadlocksResolved, s.Anomalies)
	return err
}

// FinishRun stores the end-of-run totals.
func (d *DB) FinishRun(runID string, s sim.Stats, delivered, packages int, elapsed time.Duration) error {
	res, err := d.db.Exec(
		`UPDATE runs SET
		   finished_at = ?, ticks = ?, moves = ?, blocks = ?, turns = ?,
		   pickups = ?, dropoffs = ?, yields = ?, retreats = ?,
		   emergencies = ?, deadlocks = ?, anomalies = ?,
		   delivered = ?, packages = ?, elapsed_ms = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339),
		s.Ticks, s.Moves, s.Blocks, s.Turns,
		s.Pickups, s.Dropoffs, s.Yields, s.Retreats,
		s.Emergencies, s.DeadlocksResolved, s.Anomalies,
		delivered, packages, elapsed.Milliseconds(),
		runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rundb: unknown run %s", runID)
	}
	return nil
}

// Summaries lists runs, most recent first.
func (d *DB) Summaries() ([]RunSummary, error) {
	rows, err := d.db.Query(
		`SELECT run_id, scenario, started_at, COALESCE(finished_at, ''),
		        ticks, moves, dropoffs, delivered, packages, deadlocks, elapsed_ms
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Scenario, &r.StartedAt, &r.FinishedAt,
			&r.Ticks, &r.Moves, &r.Dropoffs, &r.Delivered, &r.Packages,
			&r.Deadlocks, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TickStats returns the per-tick snapshots of one run in tick order.
func (d *DB) TickStats(runID string) ([]TickRow, error) {
	rows, err := d.db.Query(
		`SELECT tick, moves, blocks, turns, pickups, dropoffs,
		        yields, retreats, emergencies, deadlocks, anomalies
		 FROM tick_stats WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var t TickRow
		if err := rows.Scan(&t.Tick, &t.Stats.Moves, &t.Stats.Blocks, &t.Stats.Turns,
			&t.Stats.Pickups, &t.Stats.Dropoffs, &t.Stats.Yields, &t.Stats.Retreats,
			&t.Stats.Emergencies, &t.Stats.DeadlocksResolved, &t.Stats.Anomalies); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
