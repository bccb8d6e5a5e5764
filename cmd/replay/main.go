package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	persistlog "voxelspawn.ai/internal/persistence/log"
	"voxelspawn.ai/internal/sim/catalogs"
	"voxelspawn.ai/internal/sim/multiworld"
	"voxelspawn.ai/internal/sim/spawn"
	"voxelspawn.ai/internal/sim/terrain/store"
)

// replay re-checks every accepted spawn in the log against freshly generated
// terrain. Generation is deterministic, so a mismatch means the generator,
// the block catalog or the safety rules changed since the record was written.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "", "worlds config path (default: <configs>/worlds.yaml)")
		maxReport  = flag.Int("max_report", 20, "stop printing mismatches after this many")
	)
	flag.Parse()

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	wp := *worldsPath
	if wp == "" {
		wp = filepath.Join(*configDir, "worlds.yaml")
	}
	wcfg, err := multiworld.Load(wp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load worlds:", err)
		os.Exit(1)
	}
	oracle := newOracle(wcfg, cat)

	var checked, bad int
	err = persistlog.ReadSpawnLog(*dataDir, func(r multiworld.Record) error {
		if r.Pos == nil {
			return nil
		}
		checked++
		if err := verifyRecord(oracle, r); err != nil {
			bad++
			if bad <= *maxReport {
				fmt.Printf("mismatch %s %s agent=%s: %v\n", r.Time.Format("2006-01-02T15:04:05Z"), r.WorldID, r.AgentID, err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read spawn log:", err)
		os.Exit(1)
	}
	fmt.Printf("replay: checked=%d mismatches=%d\n", checked, bad)
	if bad > 0 {
		os.Exit(1)
	}
}

func newOracle(cfg multiworld.Config, cat *catalogs.BlockCatalog) *store.Oracle {
	stores := make(map[string]*store.ChunkStore, len(cfg.Worlds))
	for _, w := range cfg.Worlds {
		stores[w.ID] = store.NewChunkStore(cfg.WorldGen(w), cat)
	}
	return store.NewOracle(stores)
}

var errUnsafe = errors.New("point no longer safe")

// verifyRecord checks that the block under the recorded feet is footing and
// the two blocks at feet and head are air.
func verifyRecord(o spawn.Oracle, r multiworld.Record) error {
	x := int(math.Floor(r.Pos[0]))
	y := int(math.Floor(r.Pos[1]))
	z := int(math.Floor(r.Pos[2]))
	if r.Pos[0]-float64(x) != 0.5 || r.Pos[2]-float64(z) != 0.5 {
		return fmt.Errorf("pos %v not centered on a block", *r.Pos)
	}
	below, err := o.SampleAt(r.WorldID, x, y-1, z)
	if err != nil {
		return err
	}
	feet, err := o.SampleAt(r.WorldID, x, y, z)
	if err != nil {
		return err
	}
	above, err := o.SampleAt(r.WorldID, x, y+1, z)
	if err != nil {
		return err
	}
	if spawn.Classify(feet, below, above, false) != spawn.Safe {
		return fmt.Errorf("%w: %d,%d,%d below=%s feet=%s above=%s", errUnsafe, x, y, z, below.Block, feet.Block, above.Block)
	}
	return nil
}
