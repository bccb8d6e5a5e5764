package store

import genpkg "voxelspawn.ai/internal/sim/terrain/gen"

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	ids := map[string]uint16{}
	id := func(name string) uint16 {
		if v, ok := ids[name]; ok {
			return v
		}
		v, ok := s.Catalog.ID(name)
		if !ok {
			v = s.Catalog.Air()
		}
		ids[name] = v
		return v
	}

	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			if !s.InBounds(wx, 0, wz) {
				continue
			}
			col := genpkg.ColumnAt(s.Gen.Params, wx, wz)
			for y := 0; y < ch.Height; y++ {
				ch.Set(x, y, z, id(col.BlockAt(y)))
			}
		}
	}
}
