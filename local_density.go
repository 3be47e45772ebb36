package locality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// LocalDensity estimates the number density in a sphere of radius rcut
// around each reference point. Particles are treated as spheres of the given
// diameter and volume: a particle whose center is within diameter/2 of the
// cutoff surface contributes fractionally, which smooths the density
// estimate as particles cross the boundary.
type LocalDensity struct {
	rcut     float64
	volume   float64
	diameter float64

	density      []float64
	numNeighbors []float64

	q AABBQuery
}

// NewLocalDensity creates a local density compute. rcut and diameter must be
// positive; volume is the volume (area in 2D) of a single particle.
func NewLocalDensity(rcut, volume, diameter float64) (*LocalDensity, error) {
	if rcut <= 0 {
		return nil, fmt.Errorf("locality: rcut must be > 0, got %v", rcut)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("locality: particle volume must be > 0, got %v", volume)
	}
	if diameter <= 0 {
		return nil, fmt.Errorf("locality: particle diameter must be > 0, got %v", diameter)
	}
	return &LocalDensity{rcut: rcut, volume: volume, diameter: diameter}, nil
}

// Compute fills the per-reference-point density and weighted neighbor
// counts. points may be nil to measure the reference set against itself
// (self pairs excluded by index).
func (ld *LocalDensity) Compute(box Box, refPoints, points []r3.Vec) error {
	excludeII := points == nil || samePoints(refPoints, points)
	if points == nil {
		points = refPoints
	}

	// Particles just outside rcut can still partially overlap the sphere,
	// so search out to rcut + diameter/2.
	rmax := ld.rcut + ld.diameter/2
	if err := ld.q.Compute(box, rmax, points, refPoints, excludeII); err != nil {
		return err
	}

	n := len(refPoints)
	ld.numNeighbors = make([]float64, n)
	ld.density = make([]float64, n)

	for _, rec := range ld.q.NeighborList().Records() {
		ld.numNeighbors[rec.Idx] += ld.overlapFraction(rec.Distance)
	}

	var sphere float64
	if box.Is2D() {
		sphere = math.Pi * ld.rcut * ld.rcut
	} else {
		sphere = 4.0 / 3.0 * math.Pi * ld.rcut * ld.rcut * ld.rcut
	}
	for i := range ld.density {
		ld.density[i] = ld.numNeighbors[i] * ld.volume / sphere
	}
	return nil
}

// overlapFraction is the fraction of a particle at distance d that lies
// inside the cutoff sphere, linearized over the particle diameter.
func (ld *LocalDensity) overlapFraction(d float64) float64 {
	switch {
	case d < ld.rcut-ld.diameter/2:
		return 1
	case d > ld.rcut+ld.diameter/2:
		return 0
	default:
		return -d/ld.diameter + ld.rcut/ld.diameter + 0.5
	}
}

// Density returns the per-reference-point density estimate.
func (ld *LocalDensity) Density() []float64 { return ld.density }

// NumNeighbors returns the per-reference-point weighted neighbor count.
func (ld *LocalDensity) NumNeighbors() []float64 { return ld.numNeighbors }
