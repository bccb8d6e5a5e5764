package spawn

import (
	"errors"
	"sync/atomic"
)

type pos struct{ x, y, z int }

// fakeOracle returns layers[y] for every column unless blocks overrides a
// single position. Anything unset is AIR.
type fakeOracle struct {
	height int
	layers map[int]string
	blocks map[pos]string
	broken map[pos]bool

	calls atomic.Int64
}

func newFakeOracle(height int) *fakeOracle {
	return &fakeOracle{
		height: height,
		layers: map[int]string{},
		blocks: map[pos]string{},
		broken: map[pos]bool{},
	}
}

func (o *fakeOracle) MaxHeight(world string) int {
	o.calls.Add(1)
	return o.height
}

func (o *fakeOracle) SampleAt(world string, x, y, z int) (Sample, error) {
	o.calls.Add(1)
	p := pos{x, y, z}
	if o.broken[p] {
		return Sample{}, errors.New("chunk unavailable")
	}
	b, ok := o.blocks[p]
	if !ok {
		b = o.layers[y]
	}
	switch b {
	case "", "AIR":
		return Sample{Air: true, Block: "AIR"}, nil
	case "WATER", "LAVA":
		return Sample{Liquid: true, Block: b}, nil
	default:
		return Sample{Block: b}, nil
	}
}
