package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelspawn.ai/internal/sim/multiworld"
)

const (
	spawnPrefix = "spawns"
	hourLayout  = "2006-01-02-15"
)

// SpawnLog appends one JSON line per spawn decision to hourly zstd segments
// under <dataDir>/spawns. A record lands in the segment of its own timestamp;
// records without one use the wall clock.
type SpawnLog struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	seg    *segment
	closed bool
}

func NewSpawnLog(dataDir string) *SpawnLog {
	return &SpawnLog{dir: filepath.Join(dataDir, spawnPrefix), now: time.Now}
}

func segmentName(hour string) string {
	return spawnPrefix + "-" + hour + ".jsonl.zst"
}

// RecordSpawn implements multiworld.Recorder. Each record is flushed through
// the compressor before returning so a crash loses at most the current frame.
func (l *SpawnLog) RecordSpawn(r multiworld.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = l.now()
	}
	hour := ts.UTC().Format(hourLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}
	if l.seg == nil || l.seg.hour != hour {
		if err := l.switchLocked(hour); err != nil {
			return err
		}
	}
	return l.seg.append(r)
}

// Close flushes the open segment. Later RecordSpawn calls fail with os.ErrClosed.
func (l *SpawnLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.seg == nil {
		return nil
	}
	err := l.seg.close()
	l.seg = nil
	return err
}

func (l *SpawnLog) switchLocked(hour string) error {
	if l.seg != nil {
		err := l.seg.close()
		l.seg = nil
		if err != nil {
			return err
		}
	}
	seg, err := openSegment(filepath.Join(l.dir, segmentName(hour)), hour)
	if err != nil {
		return err
	}
	l.seg = seg
	return nil
}

// segment is one open hourly file. Reopening an hour appends a new zstd
// frame, which readers decode as a continuation.
type segment struct {
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
	enc  *json.Encoder
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	buf := bufio.NewWriterSize(zw, 32*1024)
	return &segment{hour: hour, file: f, zw: zw, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (s *segment) append(r multiworld.Record) error {
	if err := s.enc.Encode(r); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.zw.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.zw.Close(), s.file.Close())
}
