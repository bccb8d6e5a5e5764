package spawn

import (
	"sort"
	"strings"
	"sync/atomic"
)

// settings is published whole on every reload and never mutated afterwards.
// Each snapshot owns its cache, so points accepted under an older config can
// not leak into searches that run under a newer one.
type settings struct {
	cfg     Config
	enabled map[string]struct{}
	cache   *Cache
}

func (st *settings) region(world string) Region {
	return Region{
		ID:          world,
		X:           st.cfg.X,
		Y:           st.cfg.Y,
		Z:           st.cfg.Z,
		ForceGround: st.cfg.ForceGroundSpawn,
		MaxTries:    st.cfg.MaxTries,
	}
}

// Search runs bounded random spawn searches against an Oracle.
type Search struct {
	oracle   Oracle
	rand     RandSource
	capacity int

	cur atomic.Pointer[settings]
}

type Option func(*Search)

func WithRandSource(src RandSource) Option {
	return func(s *Search) {
		if src != nil {
			s.rand = src
		}
	}
}

func WithCacheCapacity(n int) Option {
	return func(s *Search) { s.capacity = n }
}

func New(oracle Oracle, cfg Config, known []string, opts ...Option) *Search {
	s := &Search{
		oracle:   oracle,
		rand:     DefaultRandSource,
		capacity: DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reload(cfg, known)
	return s
}

// Reload publishes cfg atomically and drops every cached point. When cfg
// enables no world, the first of known is enabled.
func (s *Search) Reload(cfg Config, known []string) {
	enabled := map[string]struct{}{}
	for _, id := range cfg.EnabledWorlds {
		if id = strings.TrimSpace(id); id != "" {
			enabled[id] = struct{}{}
		}
	}
	if len(enabled) == 0 && len(known) > 0 {
		enabled[known[0]] = struct{}{}
	}

	cfg.EnabledWorlds = make([]string, 0, len(enabled))
	for id := range enabled {
		cfg.EnabledWorlds = append(cfg.EnabledWorlds, id)
	}
	sort.Strings(cfg.EnabledWorlds)

	next := &settings{
		cfg:     cfg,
		enabled: enabled,
		cache:   NewCache(s.capacity),
	}
	if prev := s.cur.Swap(next); prev != nil {
		prev.cache.Clear()
	}
}

func (s *Search) Config() Config {
	cfg := s.cur.Load().cfg
	cfg.EnabledWorlds = append([]string(nil), cfg.EnabledWorlds...)
	return cfg
}

func (s *Search) Cache() *Cache { return s.cur.Load().cache }

func (s *Search) IsWorldEnabled(world string) bool {
	_, ok := s.cur.Load().enabled[world]
	return ok
}

func (s *Search) IsFeatureEnabled(f Feature) bool {
	cfg := s.cur.Load().cfg
	switch f {
	case FeatureFirstJoin:
		return cfg.FirstJoin
	case FeatureRespawn:
		return cfg.RespawnOnDeath
	default:
		return false
	}
}

// Region reports the search domain for world, if it is enabled.
func (s *Search) Region(world string) (Region, bool) {
	st := s.cur.Load()
	if _, ok := st.enabled[world]; !ok {
		return Region{}, false
	}
	return st.region(world), true
}

// FindSpawn looks for a safe point in world. It returns ErrNotApplicable for
// worlds that are not enabled and ErrNotFound when every attempt failed and
// nothing is cached for the world.
func (s *Search) FindSpawn(world string) (Result, error) {
	st := s.cur.Load()
	if _, ok := st.enabled[world]; !ok {
		return Result{}, ErrNotApplicable
	}

	rng := s.rand()
	r := st.region(world)
	maxHeight := s.oracle.MaxHeight(world)

	for attempt := 1; attempt <= r.MaxTries; attempt++ {
		c := Propose(rng, r, maxHeight)
		if r.ForceGround {
			y, ok := ResolveGroundY(s.oracle, world, c.X, c.Z)
			if !ok {
				continue
			}
			c.Y = y
		} else if !s.safeAt(world, c) {
			continue
		}

		p := Centered(rng, world, c)
		st.cache.Insert(rng, p)
		return Result{Point: p, Source: SourceSearch, Attempts: attempt}, nil
	}

	attempts := max(r.MaxTries, 0)
	if p, ok := st.cache.SampleRandom(rng, world); ok {
		return Result{Point: p, Source: SourceCache, Attempts: attempts}, nil
	}
	return Result{Attempts: attempts}, ErrNotFound
}

func (s *Search) safeAt(world string, c Candidate) bool {
	feet, err := s.oracle.SampleAt(world, c.X, c.Y, c.Z)
	if err != nil {
		return false
	}
	below, err := s.oracle.SampleAt(world, c.X, c.Y-1, c.Z)
	if err != nil {
		return false
	}
	above, err := s.oracle.SampleAt(world, c.X, c.Y+1, c.Z)
	if err != nil {
		return false
	}
	return Classify(feet, below, above, false) == Safe
}

// Centered puts the point in the middle of its block facing a random direction.
func Centered(rng Rand, world string, c Candidate) Point {
	return Point{
		World: world,
		X:     float64(c.X) + 0.5,
		Y:     float64(c.Y),
		Z:     float64(c.Z) + 0.5,
		Yaw:   rng.Float32() * 360,
		Pitch: 0,
	}
}
