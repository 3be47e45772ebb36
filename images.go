package locality

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// imageVectors enumerates the periodic translation vectors a query AABB of
// half-width rmax must be checked against. The zero vector comes first; the
// remaining vectors cover every integer lattice offset within
// ceil(rmax / L_axis) images per axis (z suppressed for 2D boxes). The set is
// deliberately conservative: vectors whose translated query cannot reach the
// tree are rejected cheaply by the per-node overlap test during traversal.
func imageVectors(box Box, rmax float64) []r3.Vec {
	nx := imageCount(rmax, box.Lx())
	ny := imageCount(rmax, box.Ly())
	nz := 0
	if !box.Is2D() {
		nz = imageCount(rmax, box.Lz())
	}

	images := make([]r3.Vec, 0, (2*nx+1)*(2*ny+1)*(2*nz+1))
	images = append(images, r3.Vec{})
	for i := -nx; i <= nx; i++ {
		for j := -ny; j <= ny; j++ {
			for k := -nz; k <= nz; k++ {
				if i == 0 && j == 0 && k == 0 {
					continue
				}
				images = append(images, box.LatticeVector(i, j, k))
			}
		}
	}
	return images
}

// imageCount returns how many whole box lengths of padding rmax requires
// along an axis of length l. A zero-length axis is non-periodic.
func imageCount(rmax, l float64) int {
	if l <= 0 {
		return 0
	}
	return int(math.Ceil(rmax / l))
}
