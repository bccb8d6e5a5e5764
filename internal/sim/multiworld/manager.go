package multiworld

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"voxelspawn.ai/internal/protocol"
	"voxelspawn.ai/internal/sim/catalogs"
	"voxelspawn.ai/internal/sim/spawn"
	"voxelspawn.ai/internal/sim/spawnconfig"
	"voxelspawn.ai/internal/sim/terrain/store"
)

var (
	ErrWorldNotFound   = errors.New("world not found")
	ErrFeatureDisabled = errors.New("spawn trigger disabled")
	ErrBadTrigger      = errors.New("unknown spawn trigger")
)

// Outcomes recorded for every spawn request.
const (
	OutcomeAccepted      = "ACCEPTED"
	OutcomeCached        = "CACHED"
	OutcomeNotApplicable = "NOT_APPLICABLE"
	OutcomeNotFound      = "NOT_FOUND"
	OutcomeDisabled      = "DISABLED"
	OutcomeNoWorld       = "NO_WORLD"
	OutcomeBadRequest    = "BAD_REQUEST"
)

type Request struct {
	WorldID string
	AgentID string
	Trigger string
}

// Record is one spawn decision as written to the audit log and index.
type Record struct {
	Time       time.Time   `json:"ts"`
	WorldID    string      `json:"world_id"`
	AgentID    string      `json:"agent_id,omitempty"`
	Trigger    string      `json:"trigger"`
	Outcome    string      `json:"outcome"`
	Source     string      `json:"source,omitempty"`
	Attempts   int         `json:"attempts"`
	Pos        *[3]float64 `json:"pos,omitempty"`
	Yaw        float32     `json:"yaw,omitempty"`
	DurationUS int64       `json:"duration_us"`
}

type Recorder interface {
	RecordSpawn(Record) error
}

type Options struct {
	Logger    *log.Logger
	Recorders []Recorder
	Rand      spawn.RandSource
	Now       func() time.Time
}

type worldCounters struct {
	accepted atomic.Uint64
	cached   atomic.Uint64
	notFound atomic.Uint64
	rejected atomic.Uint64
}

// Manager owns the terrain of every configured world and routes spawn
// triggers to the shared search.
type Manager struct {
	cfg    Config
	ids    []string
	stores map[string]*store.ChunkStore
	oracle *store.Oracle
	search *spawn.Search

	log       *log.Logger
	recorders []Recorder
	tracer    trace.Tracer
	now       func() time.Time

	counters map[string]*worldCounters
	reloads  atomic.Uint64
}

func NewManager(cfg Config, cat *catalogs.BlockCatalog, spawnCfg spawnconfig.Config, opts Options) (*Manager, error) {
	if cat == nil {
		return nil, fmt.Errorf("nil block catalog")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ids := cfg.WorldIDs()
	if err := spawnCfg.Validate(ids...); err != nil {
		return nil, err
	}

	stores := make(map[string]*store.ChunkStore, len(cfg.Worlds))
	counters := make(map[string]*worldCounters, len(cfg.Worlds))
	for _, w := range cfg.Worlds {
		stores[w.ID] = store.NewChunkStore(cfg.WorldGen(w), cat)
		counters[w.ID] = &worldCounters{}
	}
	oracle := store.NewOracle(stores)

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		cfg:       cfg,
		ids:       ids,
		stores:    stores,
		oracle:    oracle,
		search:    spawn.New(oracle, spawnCfg.ToCore(), ids, spawn.WithRandSource(opts.Rand)),
		log:       logger,
		recorders: opts.Recorders,
		tracer:    otel.Tracer("voxelspawn.ai/internal/sim/multiworld"),
		now:       now,
		counters:  counters,
	}
	return m, nil
}

func (m *Manager) DefaultWorldID() string { return m.cfg.DefaultWorldID }

func (m *Manager) WorldIDs() []string { return append([]string(nil), m.ids...) }

func (m *Manager) Store(id string) *store.ChunkStore { return m.stores[id] }

func (m *Manager) Search() *spawn.Search { return m.search }

// Reload swaps in a new spawn configuration. Cached points are dropped.
func (m *Manager) Reload(cfg spawnconfig.Config) error {
	cfg.Normalize()
	if err := cfg.Validate(m.ids...); err != nil {
		return err
	}
	m.search.Reload(cfg.ToCore(), m.ids)
	n := m.reloads.Add(1)
	core := m.search.Config()
	m.log.Printf("spawn config reloaded (#%d): enabled=%v force_ground=%v max_tries=%d", n, core.EnabledWorlds, core.ForceGroundSpawn, core.MaxTries)
	return nil
}

func (m *Manager) Reloads() uint64 { return m.reloads.Load() }

func (m *Manager) Features() protocol.FeatureFlags {
	return protocol.FeatureFlags{
		FirstJoin:      m.search.IsFeatureEnabled(spawn.FeatureFirstJoin),
		RespawnOnDeath: m.search.IsFeatureEnabled(spawn.FeatureRespawn),
	}
}

func (m *Manager) Manifest() []protocol.WorldRef {
	out := make([]protocol.WorldRef, 0, len(m.ids))
	for _, id := range m.ids {
		spec, _ := m.cfg.WorldSpecByID(id)
		out = append(out, protocol.WorldRef{
			WorldID:      id,
			WorldType:    spec.Type,
			Height:       m.stores[id].MaxHeight(),
			SpawnEnabled: m.search.IsWorldEnabled(id),
		})
	}
	return out
}

// Spawn finds a spawn point for req. Empty world and trigger default to the
// default world and JOIN.
func (m *Manager) Spawn(ctx context.Context, req Request) (spawn.Result, error) {
	if req.WorldID == "" {
		req.WorldID = m.cfg.DefaultWorldID
	}
	if req.Trigger == "" {
		req.Trigger = protocol.TriggerJoin
	}
	_, span := m.tracer.Start(ctx, "multiworld.Spawn", trace.WithAttributes(
		attribute.String("spawn.world_id", req.WorldID),
		attribute.String("spawn.trigger", req.Trigger),
	))
	defer span.End()

	start := m.now()
	res, err := m.spawn(req)
	outcome := Outcome(res, err)

	span.SetAttributes(
		attribute.String("spawn.outcome", outcome),
		attribute.Int("spawn.attempts", res.Attempts),
	)
	if outcome == OutcomeNotFound {
		span.SetStatus(codes.Error, err.Error())
	}

	m.count(req.WorldID, outcome)
	rec := Record{
		Time:       start.UTC(),
		WorldID:    req.WorldID,
		AgentID:    req.AgentID,
		Trigger:    req.Trigger,
		Outcome:    outcome,
		Attempts:   res.Attempts,
		DurationUS: m.now().Sub(start).Microseconds(),
	}
	if err == nil {
		p := res.Point
		rec.Source = string(res.Source)
		rec.Pos = &[3]float64{p.X, p.Y, p.Z}
		rec.Yaw = p.Yaw
	}
	m.record(rec)

	if outcome == OutcomeNotFound {
		m.log.Printf("no safe spawn for %s in %s after %d attempts", req.AgentID, req.WorldID, res.Attempts)
	}
	return res, err
}

func (m *Manager) spawn(req Request) (spawn.Result, error) {
	if _, ok := m.stores[req.WorldID]; !ok {
		return spawn.Result{}, fmt.Errorf("%w: %s", ErrWorldNotFound, req.WorldID)
	}
	switch req.Trigger {
	case protocol.TriggerJoin, protocol.TriggerManual:
	case protocol.TriggerFirstJoin:
		if !m.search.IsFeatureEnabled(spawn.FeatureFirstJoin) {
			return spawn.Result{}, fmt.Errorf("%w: %s", ErrFeatureDisabled, req.Trigger)
		}
	case protocol.TriggerRespawn:
		if !m.search.IsFeatureEnabled(spawn.FeatureRespawn) {
			return spawn.Result{}, fmt.Errorf("%w: %s", ErrFeatureDisabled, req.Trigger)
		}
	default:
		return spawn.Result{}, fmt.Errorf("%w: %q", ErrBadTrigger, req.Trigger)
	}
	return m.search.FindSpawn(req.WorldID)
}

// Outcome names the result of a Spawn call.
func Outcome(res spawn.Result, err error) string {
	switch {
	case err == nil && res.Source == spawn.SourceCache:
		return OutcomeCached
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, spawn.ErrNotApplicable):
		return OutcomeNotApplicable
	case errors.Is(err, spawn.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrFeatureDisabled):
		return OutcomeDisabled
	case errors.Is(err, ErrWorldNotFound):
		return OutcomeNoWorld
	default:
		return OutcomeBadRequest
	}
}

// ErrorCode maps a Spawn error onto a protocol error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, spawn.ErrNotApplicable):
		return protocol.ErrNotApplicable
	case errors.Is(err, spawn.ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, ErrFeatureDisabled):
		return protocol.ErrFeatureDisabled
	case errors.Is(err, ErrWorldNotFound):
		return protocol.ErrWorldNotFound
	case errors.Is(err, ErrBadTrigger):
		return protocol.ErrBadRequest
	default:
		return protocol.ErrInternal
	}
}

func (m *Manager) count(worldID, outcome string) {
	c := m.counters[worldID]
	if c == nil {
		return
	}
	switch outcome {
	case OutcomeAccepted:
		c.accepted.Add(1)
	case OutcomeCached:
		c.cached.Add(1)
	case OutcomeNotFound:
		c.notFound.Add(1)
	default:
		c.rejected.Add(1)
	}
}

func (m *Manager) record(rec Record) {
	for _, r := range m.recorders {
		if err := r.RecordSpawn(rec); err != nil {
			m.log.Printf("record spawn (%s/%s): %v", rec.WorldID, rec.Outcome, err)
		}
	}
}

type WorldStats struct {
	WorldID      string `json:"world_id"`
	Enabled      bool   `json:"enabled"`
	CachedPoints int    `json:"cached_points"`
	LoadedChunks int    `json:"loaded_chunks"`
	Accepted     uint64 `json:"accepted"`
	FromCache    uint64 `json:"from_cache"`
	NotFound     uint64 `json:"not_found"`
	Rejected     uint64 `json:"rejected"`
}

func (m *Manager) Stats() []WorldStats {
	cache := m.search.Cache()
	out := make([]WorldStats, 0, len(m.ids))
	for _, id := range m.ids {
		c := m.counters[id]
		out = append(out, WorldStats{
			WorldID:      id,
			Enabled:      m.search.IsWorldEnabled(id),
			CachedPoints: cache.Len(id),
			LoadedChunks: m.stores[id].LoadedChunks(),
			Accepted:     c.accepted.Load(),
			FromCache:    c.cached.Load(),
			NotFound:     c.notFound.Load(),
			Rejected:     c.rejected.Load(),
		})
	}
	return out
}
