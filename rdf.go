package locality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// RDF accumulates the radial distribution function g(r) between a reference
// and a query point set, binned from rmin to rmax in steps of dr. Accumulate
// adds one frame; Compute resets and accumulates a single frame. Results
// average over all accumulated frames.
type RDF struct {
	rmax, dr, rmin float64
	nbins          int

	counts     []float64 // accumulated raw pair counts per bin
	frames     int
	sumNRef    float64
	sumDensity float64
	is2D       bool

	q AABBQuery
}

// NewRDF creates an RDF histogram. rmax and dr must be positive, dr smaller
// than rmax, and rmin in [0, rmax).
func NewRDF(rmax, dr, rmin float64) (*RDF, error) {
	if rmax <= 0 {
		return nil, fmt.Errorf("locality: rmax must be > 0, got %v", rmax)
	}
	if dr <= 0 {
		return nil, fmt.Errorf("locality: dr must be > 0, got %v", dr)
	}
	if dr > rmax {
		return nil, fmt.Errorf("locality: rmax must be greater than dr")
	}
	if rmin < 0 || rmin >= rmax {
		return nil, fmt.Errorf("locality: rmin must be in [0, rmax), got %v", rmin)
	}
	nbins := int((rmax - rmin) / dr)
	return &RDF{
		rmax:   rmax,
		dr:     dr,
		rmin:   rmin,
		nbins:  nbins,
		counts: make([]float64, nbins),
	}, nil
}

// Accumulate adds one frame of pair data. points may be nil to use the
// reference set as the query set; self pairs are excluded by index only in
// that case.
func (r *RDF) Accumulate(box Box, refPoints, points []r3.Vec) error {
	excludeII := points == nil || samePoints(refPoints, points)
	if points == nil {
		points = refPoints
	}
	if err := r.q.Compute(box, r.rmax, refPoints, points, excludeII); err != nil {
		return err
	}

	for _, rec := range r.q.NeighborList().Records() {
		if rec.Distance < r.rmin {
			continue
		}
		bin := int((rec.Distance - r.rmin) / r.dr)
		if bin < r.nbins {
			r.counts[bin]++
		}
	}

	r.frames++
	r.sumNRef += float64(len(refPoints))
	r.sumDensity += float64(len(points)) / box.Volume()
	r.is2D = box.Is2D()
	return nil
}

// Compute resets the histogram and accumulates a single frame.
func (r *RDF) Compute(box Box, refPoints, points []r3.Vec) error {
	r.Reset()
	return r.Accumulate(box, refPoints, points)
}

// Reset discards all accumulated frames.
func (r *RDF) Reset() {
	for i := range r.counts {
		r.counts[i] = 0
	}
	r.frames = 0
	r.sumNRef = 0
	r.sumDensity = 0
}

// R returns the bin center positions, weighted toward the outer edge where
// the shell holds more volume: 2/3 * (r2^3 - r1^3) / (r2^2 - r1^2).
func (r *RDF) R() []float64 {
	centers := make([]float64, r.nbins)
	for i := range centers {
		r1 := r.rmin + float64(i)*r.dr
		r2 := r1 + r.dr
		centers[i] = 2.0 / 3.0 * (r2*r2*r2 - r1*r1*r1) / (r2*r2 - r1*r1)
	}
	return centers
}

// RDF returns g(r) per bin: the accumulated pair count normalized by the
// ideal-gas expectation for the same shells.
func (r *RDF) RDF() []float64 {
	g := make([]float64, r.nbins)
	if r.frames == 0 {
		return g
	}
	nRef := r.sumNRef / float64(r.frames)
	density := r.sumDensity / float64(r.frames)
	for i := range g {
		r1 := r.rmin + float64(i)*r.dr
		r2 := r1 + r.dr
		var shell float64
		if r.is2D {
			shell = math.Pi * (r2*r2 - r1*r1)
		} else {
			shell = 4.0 / 3.0 * math.Pi * (r2*r2*r2 - r1*r1*r1)
		}
		g[i] = r.counts[i] / (float64(r.frames) * nRef * density * shell)
	}
	return g
}

// NR returns the cumulative coordination number: the average number of
// neighbors within each bin's outer edge.
func (r *RDF) NR() []float64 {
	nr := make([]float64, r.nbins)
	if r.frames == 0 {
		return nr
	}
	floats.CumSum(nr, r.counts)
	floats.Scale(1/(r.sumNRef), nr)
	return nr
}

// BinCounts returns the accumulated raw pair counts per bin.
func (r *RDF) BinCounts() []float64 {
	out := make([]float64, len(r.counts))
	copy(out, r.counts)
	return out
}

// samePoints reports whether a and b are the same backing slice, which is
// the only case where index identity between the two sets is meaningful.
func samePoints(a, b []r3.Vec) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}
