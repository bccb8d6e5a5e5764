package gen

// FloorDiv rounds toward negative infinity. b must be > 0.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// Mod is always in [0, b). b must be > 0.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9))
}

// Roll returns a value in [0, 1000) for per-column decisions.
func Roll(seed int64, x, z int) int {
	return int(Hash2(seed, x, z) % 1000)
}

// ValueNoise interpolates hashed lattice values on a grid of the given size.
// The result is in [0, 1000].
func ValueNoise(seed int64, x, z, grid int) int {
	if grid <= 1 {
		return Roll(seed, x, z)
	}
	gx, gz := FloorDiv(x, grid), FloorDiv(z, grid)
	fx, fz := Mod(x, grid), Mod(z, grid)

	v00 := Roll(seed, gx, gz)
	v10 := Roll(seed, gx+1, gz)
	v01 := Roll(seed, gx, gz+1)
	v11 := Roll(seed, gx+1, gz+1)

	top := v00*(grid-fx) + v10*fx
	bottom := v01*(grid-fx) + v11*fx
	return (top*(grid-fz) + bottom*fz) / (grid * grid)
}
