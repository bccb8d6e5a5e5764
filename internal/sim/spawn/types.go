package spawn

import "errors"

var (
	// ErrNotApplicable means the world is not enabled for random spawns.
	ErrNotApplicable = errors.New("spawn: world not enabled")
	// ErrNotFound means every attempt was rejected and the world has no cached point.
	ErrNotFound = errors.New("spawn: no safe location found")
)

// Sample is what the terrain holds at one block position.
type Sample struct {
	Air    bool
	Liquid bool
	Block  string
}

// Oracle answers terrain queries. Implementations must be safe for concurrent use.
// An error from SampleAt is treated as unsafe terrain and never retried.
type Oracle interface {
	SampleAt(world string, x, y, z int) (Sample, error)
	MaxHeight(world string) int
}

type Range struct {
	Min int
	Max int
}

// Normalized returns the range with Min <= Max.
func (r Range) Normalized() Range {
	if r.Min > r.Max {
		return Range{Min: r.Max, Max: r.Min}
	}
	return r
}

func (r Range) Contains(v int) bool {
	n := r.Normalized()
	return v >= n.Min && v <= n.Max
}

// Config is the flat spawn configuration snapshot.
type Config struct {
	X Range
	Y Range
	Z Range

	ForceGroundSpawn bool
	MaxTries         int

	FirstJoin      bool
	RespawnOnDeath bool

	EnabledWorlds []string
}

// Region is the search domain for one enabled world.
type Region struct {
	ID          string
	X, Y, Z     Range
	ForceGround bool
	MaxTries    int
}

type Point struct {
	World string
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

type Source string

const (
	SourceSearch Source = "SEARCH"
	SourceCache  Source = "CACHE"
)

type Result struct {
	Point    Point
	Source   Source
	Attempts int
}

type Feature string

const (
	FeatureFirstJoin Feature = "first_join"
	FeatureRespawn   Feature = "respawn_on_death"
)
