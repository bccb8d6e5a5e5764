package store

import (
	"sync"

	"voxelspawn.ai/internal/sim/catalogs"
	genpkg "voxelspawn.ai/internal/sim/terrain/gen"
)

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a 16x16 column slab of the full world height.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height
}

func (c *Chunk) index(x, y, z int) int {
	return (y*ChunkSize+z)*ChunkSize + x
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	c.Blocks[c.index(x, y, z)] = b
}

type WorldGen struct {
	Params genpkg.Params
	// BoundaryR limits the generated area to |x|,|z| <= BoundaryR. 0 is unbounded.
	BoundaryR int
}

// ChunkStore generates chunks lazily and keeps them in memory. It is safe for
// concurrent use.
type ChunkStore struct {
	Gen     WorldGen
	Catalog *catalogs.BlockCatalog

	mu     sync.RWMutex
	chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen, cat *catalogs.BlockCatalog) *ChunkStore {
	gen.Params = gen.Params.Normalized()
	return &ChunkStore{
		Gen:     gen,
		Catalog: cat,
		chunks:  map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) MaxHeight() int { return s.Gen.Params.Height }

func (s *ChunkStore) LoadedChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
