package gen

type Biome string

const (
	Plains   Biome = "PLAINS"
	Forest   Biome = "FOREST"
	Desert   Biome = "DESERT"
	Ocean    Biome = "OCEAN"
	Volcanic Biome = "VOLCANIC"
)

// Params drive column generation for one world. Zero values fall back to the
// defaults applied by Normalized.
type Params struct {
	Seed            int64
	Height          int
	SeaLevel        int
	BaseHeight      int
	Amplitude       int
	NoiseGrid       int
	BiomeRegionSize int
	// HazardPermille scales how often fatal decorations appear.
	HazardPermille int
}

func (p Params) Normalized() Params {
	if p.Height <= 0 {
		p.Height = 128
	}
	if p.Height < 8 {
		p.Height = 8
	}
	if p.SeaLevel <= 0 {
		p.SeaLevel = p.Height / 2
	}
	if p.BaseHeight <= 0 {
		p.BaseHeight = p.SeaLevel + 2
	}
	if p.Amplitude <= 0 {
		p.Amplitude = p.Height / 6
	}
	if p.NoiseGrid <= 0 {
		p.NoiseGrid = 32
	}
	if p.BiomeRegionSize <= 0 {
		p.BiomeRegionSize = 256
	}
	if p.HazardPermille <= 0 {
		p.HazardPermille = 1000
	}
	return p
}

func BiomeAt(seed int64, x, z, regionSize int) Biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	switch Hash2(seed, FloorDiv(x, regionSize), FloorDiv(z, regionSize)) % 10 {
	case 0, 1, 2:
		return Plains
	case 3, 4, 5:
		return Forest
	case 6, 7:
		return Desert
	case 8:
		return Ocean
	default:
		return Volcanic
	}
}

// Column is the generated profile of one (x,z) column. Surface is the y of the
// topmost terrain block, before decorations.
type Column struct {
	Biome   Biome
	Surface int
	Top     string
	Filler  string
	// Decor is stacked on top of the surface, bottom first.
	Decor []string
	// WaterTo fills air up to and including this y; 0 means dry.
	WaterTo int
}

func ColumnAt(p Params, x, z int) Column {
	p = p.Normalized()
	biome := BiomeAt(p.Seed+17, x, z, p.BiomeRegionSize)

	n := ValueNoise(p.Seed+1, x, z, p.NoiseGrid)
	h := p.BaseHeight + (n-500)*p.Amplitude/500
	if biome == Ocean {
		h = p.SeaLevel - 4 - n*p.Amplitude/2000
	}
	h = clamp(h, 1, p.Height-7)

	col := Column{Biome: biome, Surface: h, Top: "GRASS_BLOCK", Filler: "DIRT"}
	roll := Roll(p.Seed+29, x, z)
	hazard := func(base int) bool { return roll < base*p.HazardPermille/1000 }

	switch biome {
	case Plains:
		switch {
		case hazard(3):
			col.Decor = []string{"WITHER_ROSE"}
		case hazard(8):
			col.Decor = []string{"CAMPFIRE"}
		case roll > 850:
			col.Decor = []string{"TALL_GRASS"}
		}
	case Forest:
		switch {
		case hazard(40):
			col.Decor = []string{"SWEET_BERRY_BUSH"}
		case roll > 930:
			col.Decor = []string{"OAK_LOG", "OAK_LOG", "OAK_LOG", "OAK_LOG", "OAK_LEAVES"}
		}
	case Desert:
		col.Top, col.Filler = "SAND", "SAND"
		switch {
		case hazard(60):
			col.Decor = []string{"CACTUS", "CACTUS"}
		case hazard(70):
			col.Decor = []string{"CACTUS"}
		}
	case Ocean:
		col.Top, col.Filler = "GRAVEL", "SAND"
	case Volcanic:
		col.Top, col.Filler = "BASALT", "BASALT"
		switch {
		case hazard(150):
			col.Top = "LAVA"
		case hazard(350):
			col.Top = "MAGMA_BLOCK"
		case hazard(380):
			col.Top = "MAGMA_BLOCK"
			col.Decor = []string{"FIRE"}
		case hazard(400):
			col.Decor = []string{"SOUL_CAMPFIRE"}
		}
	}
	if h < p.SeaLevel && col.Top != "LAVA" {
		col.WaterTo = p.SeaLevel
		col.Decor = nil
	}
	if h >= p.Height-12 && biome != Volcanic {
		col.Top = "SNOW_BLOCK"
	}
	return col
}

// BlockAt returns the block name at height y. Anything not generated is AIR.
func (c Column) BlockAt(y int) string {
	switch {
	case y < 0:
		return "AIR"
	case y == 0:
		return "BEDROCK"
	case y < c.Surface-3:
		return "STONE"
	case y < c.Surface:
		return c.Filler
	case y == c.Surface:
		return c.Top
	}
	if i := y - c.Surface - 1; i < len(c.Decor) {
		return c.Decor[i]
	}
	if y <= c.WaterTo {
		return "WATER"
	}
	return "AIR"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
