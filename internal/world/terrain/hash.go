package terrain

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9))
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// inCluster reports whether (x, y) falls inside a blob of the given layer.
// Blob centers are jittered per grid cell and activated with probPermille;
// checking the 3x3 neighbourhood of cells keeps blobs seamless across cell
// borders.
func inCluster(seed int64, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := floorDiv(x, grid)
	gy := floorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
