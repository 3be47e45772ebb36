package locality

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/spatial/r3"
)

// Hexatic computes the k-fold bond-orientational order parameter psi_k for
// every particle in a 2D system:
//
//	psi_i = (1/n_i) * sum_j exp(i * k * theta_ij)
//
// where theta_ij is the angle of the minimum-image bond from particle i to
// neighbor j. |psi_i| approaches 1 for a particle whose neighbors sit on a
// perfect k-fold ring and 0 for uncorrelated neighbors.
type Hexatic struct {
	k     int
	order []complex128

	q AABBQuery
}

// NewHexatic creates a hexatic order compute with the given symmetry k.
// k <= 0 selects the conventional six-fold symmetry.
func NewHexatic(k int) *Hexatic {
	if k <= 0 {
		k = 6
	}
	return &Hexatic{k: k}
}

// K returns the symmetry order.
func (h *Hexatic) K() int { return h.k }

// Compute evaluates psi_k for every point using neighbors within rmax.
// The box must be 2D.
func (h *Hexatic) Compute(box Box, points []r3.Vec, rmax float64) error {
	if !box.Is2D() {
		return fmt.Errorf("locality: hexatic order requires a 2D box")
	}
	if err := h.q.Compute(box, rmax, points, points, true); err != nil {
		return err
	}

	n := len(points)
	h.order = make([]complex128, n)
	bonds := make([]int, n)

	for _, rec := range h.q.NeighborList().Records() {
		delta := box.Wrap(r3.Sub(points[rec.RefIdx], points[rec.Idx]))
		theta := math.Atan2(delta.Y, delta.X)
		h.order[rec.Idx] += cmplx.Exp(complex(0, float64(h.k)*theta))
		bonds[rec.Idx]++
	}
	for i := range h.order {
		if bonds[i] > 0 {
			h.order[i] /= complex(float64(bonds[i]), 0)
		}
	}
	return nil
}

// ParticleOrder returns psi_k per particle from the last Compute.
func (h *Hexatic) ParticleOrder() []complex128 { return h.order }
