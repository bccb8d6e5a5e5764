package spawn

import "strings"

// fatalTokens are matched as substrings of the upper-cased block name so
// variants (SOUL_FIRE, MAGMA_BLOCK, ...) are covered without listing them.
var fatalTokens = []string{
	"LAVA",
	"FIRE",
	"CACTUS",
	"MAGMA",
	"CAMPFIRE",
	"SOUL_CAMPFIRE",
	"WITHER_ROSE",
	"SWEET_BERRY_BUSH",
}

type Verdict int

const (
	Unsafe Verdict = iota
	Safe
)

func (v Verdict) String() string {
	if v == Safe {
		return "SAFE"
	}
	return "UNSAFE"
}

func IsFatal(block string) bool {
	if block == "" {
		return false
	}
	name := strings.ToUpper(block)
	for _, tok := range fatalTokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

// IsFooting reports whether an entity can stand on s.
func IsFooting(s Sample) bool {
	return !s.Air && !s.Liquid && !IsFatal(s.Block)
}

// Classify checks the feet/head/footing triple. Ground-forced points are built
// by ResolveGroundY and pass unconditionally.
func Classify(feet, below, above Sample, forceGround bool) Verdict {
	if forceGround {
		return Safe
	}
	if feet.Air && above.Air && IsFooting(below) {
		return Safe
	}
	return Unsafe
}
