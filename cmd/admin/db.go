package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd queries the spawn index: "recent" (default) or "outcomes".
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/spawns.sqlite)")
	worldID := fs.String("world", "", "world id filter (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "recent"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "spawns.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "recent":
		err = queryRecent(db, *worldID, *limit, enc)
	case "outcomes":
		err = queryOutcomes(db, *worldID, enc)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

type spawnRow struct {
	TS       string    `json:"ts"`
	WorldID  string    `json:"world_id"`
	AgentID  string    `json:"agent_id"`
	Trigger  string    `json:"trigger"`
	Outcome  string    `json:"outcome"`
	Source   string    `json:"source,omitempty"`
	Attempts int       `json:"attempts"`
	Pos      []float64 `json:"pos,omitempty"`
}

func queryRecent(db *sql.DB, worldID string, limit int, enc *json.Encoder) error {
	rows, err := db.Query(`SELECT ts,world_id,agent_id,trigger,outcome,source,attempts,x,y,z FROM spawns
		WHERE (? = '' OR world_id = ?) ORDER BY id DESC LIMIT ?`, worldID, worldID, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r       spawnRow
			x, y, z sql.NullFloat64
		)
		if err := rows.Scan(&r.TS, &r.WorldID, &r.AgentID, &r.Trigger, &r.Outcome, &r.Source, &r.Attempts, &x, &y, &z); err != nil {
			return err
		}
		if x.Valid && y.Valid && z.Valid {
			r.Pos = []float64{x.Float64, y.Float64, z.Float64}
		}
		_ = enc.Encode(r)
	}
	return rows.Err()
}

func queryOutcomes(db *sql.DB, worldID string, enc *json.Encoder) error {
	rows, err := db.Query(`SELECT world_id,outcome,COUNT(*),AVG(attempts),AVG(duration_us) FROM spawns
		WHERE (? = '' OR world_id = ?) GROUP BY world_id,outcome ORDER BY world_id,outcome`, worldID, worldID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			WorldID     string  `json:"world_id"`
			Outcome     string  `json:"outcome"`
			Count       int     `json:"count"`
			AvgAttempts float64 `json:"avg_attempts"`
			AvgUS       float64 `json:"avg_duration_us"`
		}
		if err := rows.Scan(&r.WorldID, &r.Outcome, &r.Count, &r.AvgAttempts, &r.AvgUS); err != nil {
			return err
		}
		_ = enc.Encode(r)
	}
	return rows.Err()
}
