package store

import genpkg "voxelspawn.ai/internal/sim/terrain/gen"

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if y < 0 || y >= s.Gen.Params.Height {
		return false
	}
	if r := s.Gen.BoundaryR; r > 0 {
		if x < -r || x > r || z < -r || z > r {
			return false
		}
	}
	return true
}

// GetBlock returns the palette id at (x,y,z). Positions outside the world are air.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return s.Catalog.Air()
	}
	ch := s.GetOrGenChunk(genpkg.FloorDiv(x, ChunkSize), genpkg.FloorDiv(z, ChunkSize))
	lx, lz := genpkg.Mod(x, ChunkSize), genpkg.Mod(z, ChunkSize)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return ch.Get(lx, y, lz)
}

func (s *ChunkStore) SetBlock(x, y, z int, b uint16) {
	if !s.InBounds(x, y, z) {
		return
	}
	ch := s.GetOrGenChunk(genpkg.FloorDiv(x, ChunkSize), genpkg.FloorDiv(z, ChunkSize))
	lx, lz := genpkg.Mod(x, ChunkSize), genpkg.Mod(z, ChunkSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch.Set(lx, y, lz, b)
}

func (s *ChunkStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	s.mu.RLock()
	ch, ok := s.chunks[k]
	s.mu.RUnlock()
	if ok {
		return ch
	}

	// Generate outside the lock; a concurrent generator of the same chunk
	// produces identical blocks and the first one stored wins.
	ch = &Chunk{
		CX:     cx,
		CZ:     cz,
		Height: s.Gen.Params.Height,
		Blocks: make([]uint16, ChunkSize*ChunkSize*s.Gen.Params.Height),
	}
	s.GenerateChunk(ch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.chunks[k]; ok {
		return existing
	}
	s.chunks[k] = ch
	return ch
}
