package locality

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// tensor4 is a symmetric rank-4 tensor over R^3, stored flat in ijkl order.
type tensor4 [81]float64

func tensorProd(v r3.Vec) tensor4 {
	var t tensor4
	c := [3]float64{v.X, v.Y, v.Z}
	cnt := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					t[cnt] = c[i] * c[j] * c[k] * c[l]
					cnt++
				}
			}
		}
	}
	return t
}

func (t tensor4) add(o tensor4) tensor4 {
	for i := range t {
		t[i] += o[i]
	}
	return t
}

func (t tensor4) sub(o tensor4) tensor4 {
	for i := range t {
		t[i] -= o[i]
	}
	return t
}

func (t tensor4) scale(f float64) tensor4 {
	for i := range t {
		t[i] *= f
	}
	return t
}

func tensorDot(a, b tensor4) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// genR4Tensor builds the isotropic rank-4 tensor 2/5*(d_ij*d_kl + d_ik*d_jl
// + d_il*d_jk) subtracted from all cubatic tensors.
func genR4Tensor() tensor4 {
	delta := func(a, b int) float64 {
		if a == b {
			return 1
		}
		return 0
	}
	var t tensor4
	cnt := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					t[cnt] = 2.0 / 5.0 * (delta(i, j)*delta(k, l) + delta(i, k)*delta(j, l) + delta(i, l)*delta(j, k))
					cnt++
				}
			}
		}
	}
	return t
}

// rotate applies the unit quaternion q to v: q v q*.
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// quatFromAxisAngle builds the rotation of angle radians about the unit axis.
func quatFromAxisAngle(axis r3.Vec, angle float64) quat.Number {
	s := math.Sin(angle / 2)
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: s * axis.X,
		Jmag: s * axis.Y,
		Kmag: s * axis.Z,
	}
}

// randomQuaternion draws a rotation with a uniformly random axis and an
// angle in [0, angleMultiplier).
func randomQuaternion(rng *rand.Rand, angleMultiplier float64) quat.Number {
	theta := rng.Float64() * 2 * math.Pi
	phi := math.Acos(2*rng.Float64() - 1)
	axis := r3.Vec{
		X: math.Cos(theta) * math.Sin(phi),
		Y: math.Sin(theta) * math.Sin(phi),
		Z: math.Cos(phi),
	}
	return quatFromAxisAngle(axis, angleMultiplier*rng.Float64())
}

// Cubatic computes the cubatic order parameter of a set of particle
// orientations: how strongly the system as a whole shares a common cubic
// (fourfold) axis frame. The optimal frame is found by simulated annealing
// over orientation space, repeated across independent replicates; the best
// replicate wins. Per-particle order parameters measure how well each
// particle's own orientation matches the global tensor.
type Cubatic struct {
	tInitial, tFinal float64
	scale            float64
	replicates       int
	seed             int64

	r4 tensor4

	globalTensor   tensor4
	cubaticTensor  tensor4
	orientation    quat.Number
	orderParameter float64
	particleOrder  []float64
}

// NewCubatic creates a cubatic order compute. The annealing schedule cools
// from tInitial down to tFinal (>= 1e-6), multiplying by scale in (0, 1) on
// each accepted move; replicates independent anneals are run from seed.
func NewCubatic(tInitial, tFinal, scale float64, replicates int, seed int64) (*Cubatic, error) {
	if tInitial < tFinal {
		return nil, fmt.Errorf("locality: tInitial must be greater than tFinal")
	}
	if tFinal < 1e-6 {
		return nil, fmt.Errorf("locality: tFinal must be >= 1e-6, got %v", tFinal)
	}
	if scale <= 0 || scale >= 1 {
		return nil, fmt.Errorf("locality: annealing scale must be in (0, 1), got %v", scale)
	}
	if replicates < 1 {
		return nil, fmt.Errorf("locality: replicates must be >= 1, got %d", replicates)
	}
	return &Cubatic{
		tInitial:   tInitial,
		tFinal:     tFinal,
		scale:      scale,
		replicates: replicates,
		seed:       seed,
		r4:         genR4Tensor(),
	}, nil
}

var systemVectors = [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}

// orientationTensor is the cubatic tensor of a single orientation: the
// summed fourth powers of the rotated frame vectors, normalized and reduced
// by the isotropic part.
func (c *Cubatic) orientationTensor(q quat.Number) tensor4 {
	var t tensor4
	for _, v := range systemVectors {
		t = t.add(tensorProd(rotate(q, v)))
	}
	return t.scale(2).sub(c.r4)
}

// tensorOrderParameter is 1 minus the normalized distance between the global
// tensor and a trial cubatic tensor; 1 means a perfect match.
func (c *Cubatic) tensorOrderParameter(global, trial tensor4) float64 {
	diff := global.sub(trial)
	return 1 - tensorDot(diff, diff)/tensorDot(trial, trial)
}

// Compute evaluates the global and per-particle cubatic order for the given
// particle orientations.
func (c *Cubatic) Compute(orientations []quat.Number) error {
	n := len(orientations)
	if n == 0 {
		return fmt.Errorf("locality: cubatic order requires at least one orientation")
	}

	c.globalTensor = c.computeGlobalTensor(orientations)

	type replicaResult struct {
		tensor      tensor4
		orientation quat.Number
		order       float64
	}
	results := make([]replicaResult, c.replicates)

	// Independent anneals with per-replicate RNGs; each writes its own slot.
	var wg sync.WaitGroup
	for rep := 0; rep < c.replicates; rep++ {
		wg.Add(1)
		go func(rep int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(c.seed + int64(rep)))

			orientation := randomQuaternion(rng, 2*math.Pi)
			tensor := c.orientationTensor(orientation)
			order := c.tensorOrderParameter(c.globalTensor, tensor)

			// Annealing loop; the iteration cap guards against schedules
			// that reject forever (t only cools on accepted moves).
			t := c.tInitial
			for loop := 0; t > c.tFinal && loop < 10000; loop++ {
				trialOrientation := quat.Mul(randomQuaternion(rng, 0.1), orientation)
				trialTensor := c.orientationTensor(trialOrientation)
				trialOrder := c.tensorOrderParameter(c.globalTensor, trialTensor)

				accept := trialOrder > order
				if !accept {
					boltzmann := math.Exp(-(order - trialOrder) / t)
					accept = boltzmann >= rng.Float64()
				}
				if !accept {
					continue
				}
				orientation, tensor, order = trialOrientation, trialTensor, trialOrder
				t *= c.scale
			}
			results[rep] = replicaResult{tensor: tensor, orientation: orientation, order: order}
		}(rep)
	}
	wg.Wait()

	best := 0
	for rep := 1; rep < c.replicates; rep++ {
		if results[rep].order > results[best].order {
			best = rep
		}
	}
	c.cubaticTensor = results[best].tensor
	c.orientation = results[best].orientation
	c.orderParameter = results[best].order

	c.computeParticleOrder(orientations)
	return nil
}

// computeGlobalTensor averages the per-particle orientation tensors.
func (c *Cubatic) computeGlobalTensor(orientations []quat.Number) tensor4 {
	n := len(orientations)
	workers := clampWorkers(n, 0)

	partial := make([]tensor4, workers)
	parallelFor(n, workers, func(slot, start, end int) {
		var sum tensor4
		for i := start; i < end; i++ {
			var m tensor4
			for _, v := range systemVectors {
				m = m.add(tensorProd(rotate(orientations[i], v)))
			}
			sum = sum.add(m.scale(2))
		}
		partial[slot] = sum
	})

	var global tensor4
	for _, p := range partial {
		global = global.add(p)
	}
	return global.scale(1 / float64(n)).sub(c.r4)
}

// computeParticleOrder scores each particle's own orientation against the
// global tensor.
func (c *Cubatic) computeParticleOrder(orientations []quat.Number) {
	c.particleOrder = make([]float64, len(orientations))
	for i, q := range orientations {
		c.particleOrder[i] = c.tensorOrderParameter(c.globalTensor, c.orientationTensor(q))
	}
}

// OrderParameter returns the best global cubatic order found.
func (c *Cubatic) OrderParameter() float64 { return c.orderParameter }

// Orientation returns the quaternion of the optimal cubic frame.
func (c *Cubatic) Orientation() quat.Number { return c.orientation }

// ParticleOrder returns the per-particle order parameters.
func (c *Cubatic) ParticleOrder() []float64 { return c.particleOrder }
