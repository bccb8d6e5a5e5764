package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelspawn.ai/internal/sim/multiworld"
)

// SQLiteIndex is a read model of spawn decisions. Writes are queued and
// applied by a single goroutine; when the queue is full the record is dropped
// (the JSONL log stays the source of truth).
type SQLiteIndex struct {
	db *sql.DB

	// mu is read-held around every send on ch and write-held while Close
	// closes it.
	mu   sync.RWMutex
	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed     atomic.Bool
	dropTotal  atomic.Uint64
	writeTotal atomic.Uint64
}

type req struct {
	rec   multiworld.Record
	flush chan struct{}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTotal     uint64 `json:"drop_total"`
	WriteTotal    uint64 `json:"write_total"`
}

// WorldStats aggregates recorded outcomes for one world.
type WorldStats struct {
	WorldID     string         `json:"world_id"`
	Total       int            `json:"total"`
	ByOutcome   map[string]int `json:"by_outcome"`
	AvgAttempts float64        `json:"avg_attempts"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spawns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			world_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			trigger TEXT NOT NULL,
			outcome TEXT NOT NULL,
			source TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			x REAL,
			y REAL,
			z REAL,
			yaw REAL,
			duration_us INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_spawns_world_ts ON spawns(world_id, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_spawns_agent_ts ON spawns(agent_id, ts);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordSpawn(r multiworld.Record) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{rec: r}:
	default:
		s.dropTotal.Add(1)
	}
	return nil
}

// Flush blocks until every record queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	if err := s.enqueueFlush(ctx, done); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueFlush hands a flush marker to the writer. On a closed index done is
// closed right away.
func (s *SQLiteIndex) enqueueFlush(ctx context.Context, done chan struct{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		close(done)
		return nil
	}
	select {
	case s.ch <- req{flush: done}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
		WriteTotal:    s.writeTotal.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insert, err := s.db.Prepare(`INSERT INTO spawns(ts,world_id,agent_id,trigger,outcome,source,attempts,x,y,z,yaw,duration_us) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		for range s.ch {
		}
		return
	}
	defer insert.Close()

	var (
		tx          *sql.Tx
		pending     int
		commitEvery = 500
		ticker      = time.NewTicker(time.Second)
	)
	defer ticker.Stop()

	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.writeTotal.Add(uint64(pending))
		}
		tx = nil
		pending = 0
	}

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if r.flush != nil {
				commit()
				close(r.flush)
				continue
			}
			if tx == nil {
				txx, err := s.db.BeginTx(ctx, nil)
				if err != nil {
					continue
				}
				tx = txx
			}
			if _, err := tx.Stmt(insert).Exec(recordArgs(r.rec)...); err != nil {
				continue
			}
			pending++
			if pending >= commitEvery {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}

func recordArgs(r multiworld.Record) []any {
	var x, y, z, yaw any
	if r.Pos != nil {
		x, y, z, yaw = r.Pos[0], r.Pos[1], r.Pos[2], float64(r.Yaw)
	}
	return []any{
		r.Time.UTC().Format(time.RFC3339Nano),
		r.WorldID,
		r.AgentID,
		r.Trigger,
		r.Outcome,
		r.Source,
		r.Attempts,
		x, y, z, yaw,
		r.DurationUS,
	}
}

func (s *SQLiteIndex) WorldStats(ctx context.Context, worldID string) (WorldStats, error) {
	out := WorldStats{WorldID: worldID, ByOutcome: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*), AVG(attempts) FROM spawns WHERE world_id = ? GROUP BY outcome`, worldID)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	var attempts float64
	for rows.Next() {
		var (
			outcome string
			n       int
			avg     float64
		)
		if err := rows.Scan(&outcome, &n, &avg); err != nil {
			return out, err
		}
		out.ByOutcome[outcome] = n
		out.Total += n
		attempts += avg * float64(n)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	if out.Total > 0 {
		out.AvgAttempts = attempts / float64(out.Total)
	}
	return out, nil
}
