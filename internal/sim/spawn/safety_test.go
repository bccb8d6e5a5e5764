package spawn

import "testing"

func TestIsFatal(t *testing.T) {
	fatal := []string{"LAVA", "lava", "FIRE", "SOUL_FIRE", "CACTUS", "MAGMA_BLOCK", "magma_block", "CAMPFIRE", "SOUL_CAMPFIRE", "WITHER_ROSE", "SWEET_BERRY_BUSH", "FLOWING_LAVA"}
	for _, b := range fatal {
		if !IsFatal(b) {
			t.Fatalf("expected %q to be fatal", b)
		}
	}
	for _, b := range []string{"", "STONE", "GRASS_BLOCK", "SAND", "WATER", "AIR"} {
		if IsFatal(b) {
			t.Fatalf("expected %q to be harmless", b)
		}
	}
}

func TestClassifyWithoutGroundForcing(t *testing.T) {
	air := Sample{Air: true, Block: "AIR"}
	stone := Sample{Block: "STONE"}

	if got := Classify(air, stone, air, false); got != Safe {
		t.Fatalf("air over stone: got %v", got)
	}
	if got := Classify(stone, stone, air, false); got != Unsafe {
		t.Fatalf("solid feet: got %v", got)
	}
	if got := Classify(air, stone, stone, false); got != Unsafe {
		t.Fatalf("solid head: got %v", got)
	}
	if got := Classify(air, air, air, false); got != Unsafe {
		t.Fatalf("floating: got %v", got)
	}
	if got := Classify(air, Sample{Liquid: true, Block: "WATER"}, air, false); got != Unsafe {
		t.Fatalf("water footing: got %v", got)
	}
	if got := Classify(air, Sample{Liquid: true, Block: "LAVA"}, air, false); got != Unsafe {
		t.Fatalf("lava footing: got %v", got)
	}
	if got := Classify(air, Sample{Block: "MAGMA_BLOCK"}, air, false); got != Unsafe {
		t.Fatalf("magma footing: got %v", got)
	}
}

func TestClassifyGroundForcingDefersToResolver(t *testing.T) {
	lava := Sample{Liquid: true, Block: "LAVA"}
	if got := Classify(lava, lava, lava, true); got != Safe {
		t.Fatalf("expected ground-forced classification to pass, got %v", got)
	}
}

func TestIsFooting(t *testing.T) {
	if !IsFooting(Sample{Block: "DIRT"}) {
		t.Fatalf("dirt should be footing")
	}
	if IsFooting(Sample{Air: true, Block: "AIR"}) {
		t.Fatalf("air should not be footing")
	}
	if IsFooting(Sample{Block: "CACTUS"}) {
		t.Fatalf("cactus should not be footing")
	}
}
