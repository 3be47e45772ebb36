package locality

import "gonum.org/v1/gonum/spatial/r3"

// VoronoiBuffer replicates particles whose periodic images fall within a
// buffer distance of the box boundary. The resulting ghost points let a
// non-periodic downstream computation (a Voronoi tessellation, for example)
// see across the periodic boundary.
type VoronoiBuffer struct {
	box Box

	bufferPoints []r3.Vec
	bufferIDs    []int
}

// NewVoronoiBuffer creates a buffer compute for the given box.
func NewVoronoiBuffer(box Box) *VoronoiBuffer {
	return &VoronoiBuffer{box: box}
}

// Compute finds, for every point, the periodic images (excluding the point
// itself) that land within buff of the box slab. Points are assumed to lie
// in the box centered on the origin, matching Wrap's convention.
func (v *VoronoiBuffer) Compute(points []r3.Vec, buff float64) {
	v.bufferPoints = v.bufferPoints[:0]
	v.bufferIDs = v.bufferIDs[:0]

	lx, ly, lz := v.box.Lx(), v.box.Ly(), v.box.Lz()
	xy, xz, yz := v.box.TiltFactors()

	lxb := lx/2 + buff
	lyb := ly/2 + buff
	lzb := lz/2 + buff
	ix := imageCount(buff, lx)
	iy := imageCount(buff, ly)
	iz := 0
	if !v.box.Is2D() {
		iz = imageCount(buff, lz)
	}

	for id, p := range points {
		for i := -ix; i <= ix; i++ {
			for j := -iy; j <= iy; j++ {
				if v.box.Is2D() {
					if i == 0 && j == 0 {
						continue
					}
					img := r3.Add(p, v.box.LatticeVector(i, j, 0))
					xadj := img.Y * xy
					if img.X < lxb+xadj && img.X > -lxb+xadj &&
						img.Y < lyb && img.Y > -lyb {
						v.bufferPoints = append(v.bufferPoints, img)
						v.bufferIDs = append(v.bufferIDs, id)
					}
					continue
				}
				for k := -iz; k <= iz; k++ {
					if i == 0 && j == 0 && k == 0 {
						continue
					}
					img := r3.Add(p, v.box.LatticeVector(i, j, k))
					xadj := img.Y*xy + img.Z*xz
					yadj := img.Z * yz
					if img.X < lxb+xadj && img.X > -lxb+xadj &&
						img.Y < lyb+yadj && img.Y > -lyb+yadj &&
						img.Z < lzb && img.Z > -lzb {
						v.bufferPoints = append(v.bufferPoints, img)
						v.bufferIDs = append(v.bufferIDs, id)
					}
				}
			}
		}
	}
}

// BufferPoints returns the ghost positions from the last Compute.
func (v *VoronoiBuffer) BufferPoints() []r3.Vec { return v.bufferPoints }

// BufferIDs returns, for each ghost point, the index of its source particle.
func (v *VoronoiBuffer) BufferIDs() []int { return v.bufferIDs }
