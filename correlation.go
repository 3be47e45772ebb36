package locality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CorrelationValue is the element type a CorrelationFunction can average:
// real or complex per-particle quantities.
type CorrelationValue interface {
	float64 | complex128
}

// CorrelationFunction computes a generic pairwise correlation
// <v_ref * v_point>(r): the product of per-particle values for every pair,
// binned by minimum-image pair distance and averaged per bin. Values are
// multiplied as-is; callers wanting a conjugated correlation of complex data
// pass pre-conjugated reference values. The cutoff must fit inside half the
// box so the minimum image is unambiguous.
type CorrelationFunction[T CorrelationValue] struct {
	rmax, dr float64
	nbins    int

	sums   []T
	counts []uint64

	// Workers bounds the fan-out over reference points. 0 means
	// runtime.NumCPU().
	Workers int
}

// NewCorrelationFunction creates a correlation histogram with bins of width
// dr from 0 to rmax.
func NewCorrelationFunction[T CorrelationValue](rmax, dr float64) (*CorrelationFunction[T], error) {
	if dr <= 0 {
		return nil, fmt.Errorf("locality: dr must be positive, got %v", dr)
	}
	if rmax <= 0 {
		return nil, fmt.Errorf("locality: rmax must be positive, got %v", rmax)
	}
	if dr > rmax {
		return nil, fmt.Errorf("locality: rmax must be greater than dr")
	}
	nbins := int(math.Floor(rmax / dr))
	return &CorrelationFunction[T]{
		rmax:   rmax,
		dr:     dr,
		nbins:  nbins,
		sums:   make([]T, nbins),
		counts: make([]uint64, nbins),
	}, nil
}

// Accumulate adds one frame of pair products. refValues and pointValues
// carry one value per point of the corresponding set; pairs with identical
// indices are skipped only when both sets are the same slice.
func (c *CorrelationFunction[T]) Accumulate(box Box, refPoints []r3.Vec, refValues []T, points []r3.Vec, pointValues []T) error {
	if len(refValues) != len(refPoints) {
		return fmt.Errorf("locality: %d reference values for %d reference points", len(refValues), len(refPoints))
	}
	if len(pointValues) != len(points) {
		return fmt.Errorf("locality: %d values for %d points", len(pointValues), len(points))
	}
	if err := c.checkBox(box); err != nil {
		return err
	}
	sameSet := samePoints(refPoints, points)

	// Per-worker local histograms, merged after the sweep. Reference-point
	// ranges are contiguous and disjoint, so workers never share state.
	workers := clampWorkers(len(refPoints), c.Workers)
	localSums := make([][]T, workers)
	localCounts := make([][]uint64, workers)
	parallelFor(len(refPoints), workers, func(slot, start, end int) {
		sums := make([]T, c.nbins)
		counts := make([]uint64, c.nbins)
		localSums[slot] = sums
		localCounts[slot] = counts

		rmaxSq := c.rmax * c.rmax
		for i := start; i < end; i++ {
			for j := range points {
				if sameSet && i == j {
					continue
				}
				delta := box.Wrap(r3.Sub(points[j], refPoints[i]))
				dSq := r3.Norm2(delta)
				if dSq >= rmaxSq {
					continue
				}
				bin := int(math.Sqrt(dSq) / c.dr)
				if bin < c.nbins {
					sums[bin] += refValues[i] * pointValues[j]
					counts[bin]++
				}
			}
		}
	})

	for w := range localSums {
		if localSums[w] == nil {
			continue
		}
		for b := 0; b < c.nbins; b++ {
			c.sums[b] += localSums[w][b]
			c.counts[b] += localCounts[w][b]
		}
	}
	return nil
}

// Compute resets the histogram and accumulates a single frame.
func (c *CorrelationFunction[T]) Compute(box Box, refPoints []r3.Vec, refValues []T, points []r3.Vec, pointValues []T) error {
	c.Reset()
	return c.Accumulate(box, refPoints, refValues, points, pointValues)
}

// Reset discards all accumulated pairs.
func (c *CorrelationFunction[T]) Reset() {
	for i := range c.sums {
		c.sums[i] = 0
		c.counts[i] = 0
	}
}

// Correlation returns the per-bin average pair product. Empty bins are zero.
func (c *CorrelationFunction[T]) Correlation() []T {
	out := make([]T, c.nbins)
	for i := range out {
		if c.counts[i] > 0 {
			out[i] = c.sums[i] / complexOrReal[T](float64(c.counts[i]))
		}
	}
	return out
}

// Counts returns the number of accumulated pairs per bin.
func (c *CorrelationFunction[T]) Counts() []uint64 {
	out := make([]uint64, len(c.counts))
	copy(out, c.counts)
	return out
}

// R returns the bin center positions (midpoints).
func (c *CorrelationFunction[T]) R() []float64 {
	centers := make([]float64, c.nbins)
	for i := range centers {
		centers[i] = (float64(i) + 0.5) * c.dr
	}
	return centers
}

// checkBox rejects cutoffs that would make the minimum image ambiguous.
func (c *CorrelationFunction[T]) checkBox(box Box) error {
	lmin := math.Min(box.Lx(), box.Ly())
	if !box.Is2D() {
		lmin = math.Min(lmin, box.Lz())
	}
	if c.rmax > lmin/2 {
		return fmt.Errorf("locality: rmax must be smaller than half the smallest box length")
	}
	return nil
}

// complexOrReal converts a float64 into T's underlying scalar kind.
func complexOrReal[T CorrelationValue](f float64) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(f, 0)).(T)
	default:
		return any(f).(T)
	}
}
