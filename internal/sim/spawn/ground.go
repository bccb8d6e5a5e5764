package spawn

// ResolveGroundY scans the column (x,z) from the top of the world down to y=1
// and returns the standing height above the highest footing block that has two
// air blocks over it.
func ResolveGroundY(o Oracle, world string, x, z int) (int, bool) {
	top := o.MaxHeight(world) - 1
	for y := top; y >= 1; y-- {
		ground, err := o.SampleAt(world, x, y, z)
		if err != nil || !IsFooting(ground) {
			continue
		}
		feet, err := o.SampleAt(world, x, y+1, z)
		if err != nil || !feet.Air {
			continue
		}
		head, err := o.SampleAt(world, x, y+2, z)
		if err != nil || !head.Air {
			continue
		}
		return y + 1, true
	}
	return 0, false
}
