package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	persistlog "voxelspawn.ai/internal/persistence/log"
	"voxelspawn.ai/internal/sim/multiworld"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "log":
			logCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "reload":
			reloadCmd(os.Args[2:])
			return
		case "spawn":
			spawnCmd(os.Args[2:])
			return
		case "stats":
			statsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	names, err := persistlog.Segments(filepath.Join(*dataDir, "spawns"), "spawns")
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

// logCmd prints spawn log records (JSONL) matching the filters.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id filter (optional)")
	outcome := fs.String("outcome", "", "outcome filter, e.g. NOT_FOUND (optional)")
	summary := fs.Bool("summary", false, "print per-world outcome counts instead of records")
	_ = fs.Parse(args)

	if err := printSpawnLog(os.Stdout, *dataDir, *worldID, *outcome, *summary); err != nil {
		fmt.Fprintln(os.Stderr, "read spawn log:", err)
		os.Exit(1)
	}
}

func printSpawnLog(w io.Writer, dataDir, worldID, outcome string, summary bool) error {
	counts := map[string]map[string]int{}
	enc := json.NewEncoder(w)
	err := persistlog.ReadSpawnLog(dataDir, func(r multiworld.Record) error {
		if worldID != "" && r.WorldID != worldID {
			return nil
		}
		if outcome != "" && !strings.EqualFold(r.Outcome, outcome) {
			return nil
		}
		if summary {
			if counts[r.WorldID] == nil {
				counts[r.WorldID] = map[string]int{}
			}
			counts[r.WorldID][r.Outcome]++
			return nil
		}
		return enc.Encode(r)
	})
	if err != nil {
		return err
	}
	if summary {
		return enc.Encode(counts)
	}
	return nil
}
