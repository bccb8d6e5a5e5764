package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelspawn.ai/internal/sim/multiworld"
)

// Segments lists <prefix>-*.jsonl.zst files under dir in chronological order.
func Segments(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadSpawnLog decodes every spawn record under <dataDir>/spawns in order.
func ReadSpawnLog(dataDir string, fn func(multiworld.Record) error) error {
	dir := filepath.Join(dataDir, spawnPrefix)
	names, err := Segments(dir, spawnPrefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := readSegment(filepath.Join(dir, name), fn); err != nil {
			return err
		}
	}
	return nil
}

func readSegment(path string, fn func(multiworld.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var r multiworld.Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return sc.Err()
}
