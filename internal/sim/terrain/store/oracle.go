package store

import (
	"fmt"

	"voxelspawn.ai/internal/sim/spawn"
)

// Oracle serves terrain samples for a fixed set of worlds.
type Oracle struct {
	worlds map[string]*ChunkStore
}

func NewOracle(worlds map[string]*ChunkStore) *Oracle {
	cp := make(map[string]*ChunkStore, len(worlds))
	for id, s := range worlds {
		cp[id] = s
	}
	return &Oracle{worlds: cp}
}

func (o *Oracle) Store(world string) *ChunkStore { return o.worlds[world] }

func (o *Oracle) MaxHeight(world string) int {
	s := o.worlds[world]
	if s == nil {
		return 0
	}
	return s.MaxHeight()
}

func (o *Oracle) SampleAt(world string, x, y, z int) (spawn.Sample, error) {
	s := o.worlds[world]
	if s == nil {
		return spawn.Sample{}, fmt.Errorf("unknown world %q", world)
	}
	b := s.GetBlock(x, y, z)
	name := s.Catalog.Name(b)
	if name == "" {
		return spawn.Sample{}, fmt.Errorf("block %d at %d,%d,%d not in palette", b, x, y, z)
	}
	def, _ := s.Catalog.Def(b)
	return spawn.Sample{
		Air:    b == s.Catalog.Air(),
		Liquid: def.Liquid,
		Block:  name,
	}, nil
}
