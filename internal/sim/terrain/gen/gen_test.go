package gen

import "testing"

func TestFloorDivAndMod(t *testing.T) {
	if FloorDiv(-1, 16) != -1 || FloorDiv(-16, 16) != -1 || FloorDiv(-17, 16) != -2 || FloorDiv(15, 16) != 0 {
		t.Fatalf("unexpected FloorDiv results")
	}
	if Mod(-1, 16) != 15 || Mod(16, 16) != 0 || Mod(-17, 16) != 15 {
		t.Fatalf("unexpected Mod results")
	}
}

func TestHashDeterministic(t *testing.T) {
	if Hash2(1, 2, 3) != Hash2(1, 2, 3) {
		t.Fatalf("Hash2 not deterministic")
	}
	if Hash2(1, 2, 3) == Hash2(2, 2, 3) {
		t.Fatalf("seed should change Hash2")
	}
	if Hash3(1, 2, 3, 4) == Hash3(1, 2, 4, 4) {
		t.Fatalf("y should change Hash3")
	}
}

func TestValueNoiseRange(t *testing.T) {
	for x := -100; x < 100; x += 7 {
		for z := -100; z < 100; z += 11 {
			v := ValueNoise(9, x, z, 16)
			if v < 0 || v > 1000 {
				t.Fatalf("noise out of range at %d,%d: %d", x, z, v)
			}
		}
	}
	if ValueNoise(9, 32, 48, 16) != Roll(9, 2, 3) {
		t.Fatalf("lattice points must equal the hashed lattice value")
	}
}

func TestColumnAtStaysInsideWorld(t *testing.T) {
	p := Params{Seed: 1337, Height: 64}
	for x := -300; x < 300; x += 13 {
		for z := -300; z < 300; z += 17 {
			c := ColumnAt(p, x, z)
			if c.Surface < 1 || c.Surface+len(c.Decor) >= 64 {
				t.Fatalf("column %d,%d out of world: surface=%d decor=%d", x, z, c.Surface, len(c.Decor))
			}
			if c.BlockAt(0) != "BEDROCK" {
				t.Fatalf("expected bedrock floor")
			}
			if c.BlockAt(c.Surface) != c.Top {
				t.Fatalf("expected top block at surface")
			}
			if c.BlockAt(63) != "AIR" && c.WaterTo < 63 {
				t.Fatalf("expected air at the top of %d,%d, got %s", x, z, c.BlockAt(63))
			}
		}
	}
}

func TestColumnAtDeterministic(t *testing.T) {
	p := Params{Seed: 42, Height: 128}
	a := ColumnAt(p, 123, -456)
	b := ColumnAt(p, 123, -456)
	if a.Surface != b.Surface || a.Top != b.Top || a.Biome != b.Biome || len(a.Decor) != len(b.Decor) {
		t.Fatalf("columns differ: %+v vs %+v", a, b)
	}
}

func TestColumnBlockAtLayers(t *testing.T) {
	c := Column{Surface: 10, Top: "GRASS_BLOCK", Filler: "DIRT", Decor: []string{"CACTUS"}}
	cases := map[int]string{-1: "AIR", 0: "BEDROCK", 5: "STONE", 7: "DIRT", 9: "DIRT", 10: "GRASS_BLOCK", 11: "CACTUS", 12: "AIR"}
	for y, want := range cases {
		if got := c.BlockAt(y); got != want {
			t.Fatalf("y=%d: got %s want %s", y, got, want)
		}
	}
	wet := Column{Surface: 4, Top: "GRAVEL", Filler: "SAND", WaterTo: 8}
	if wet.BlockAt(8) != "WATER" || wet.BlockAt(9) != "AIR" {
		t.Fatalf("unexpected water column")
	}
}

func TestBiomesAllAppear(t *testing.T) {
	seen := map[Biome]bool{}
	for x := 0; x < 200; x++ {
		seen[BiomeAt(5, x, x*3, 1)] = true
	}
	for _, b := range []Biome{Plains, Forest, Desert, Ocean, Volcanic} {
		if !seen[b] {
			t.Fatalf("biome %s never generated", b)
		}
	}
}
