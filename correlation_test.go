package locality

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewCorrelationFunction_Validation(t *testing.T) {
	_, err := NewCorrelationFunction[float64](0, 0.1)
	assert.Error(t, err)
	_, err = NewCorrelationFunction[float64](1, 0)
	assert.Error(t, err)
	_, err = NewCorrelationFunction[float64](1, 2)
	assert.Error(t, err)
}

func TestCorrelationFunction_RejectsOversizedCutoff(t *testing.T) {
	c, err := NewCorrelationFunction[float64](6, 0.5)
	require.NoError(t, err)

	box := NewCubicBox(10)
	points := []r3.Vec{{}, {X: 1}}
	values := []float64{1, 1}
	err = c.Accumulate(box, points, values, points, values)
	assert.Error(t, err)
}

func TestCorrelationFunction_ConstantValues(t *testing.T) {
	rng := rand.New(rand.NewSource(50))
	box := NewCubicBox(10)
	points := randomPoints(rng, 500, 10)
	values := make([]float64, len(points))
	for i := range values {
		values[i] = 3
	}

	c, err := NewCorrelationFunction[float64](4, 0.5)
	require.NoError(t, err)
	require.NoError(t, c.Compute(box, points, values, points, values))

	corr := c.Correlation()
	counts := c.Counts()
	for i := range corr {
		if counts[i] == 0 {
			assert.Zero(t, corr[i])
			continue
		}
		assert.InDelta(t, 9.0, corr[i], floatTol, "bin %d", i)
	}
}

func TestCorrelationFunction_ZeroMeanValuesDecorrelate(t *testing.T) {
	rng := rand.New(rand.NewSource(51))
	box := NewCubicBox(10)
	points := randomPoints(rng, 2000, 10)
	values := make([]float64, len(points))
	for i := range values {
		if rng.Intn(2) == 0 {
			values[i] = 1
		} else {
			values[i] = -1
		}
	}

	c, err := NewCorrelationFunction[float64](4, 1)
	require.NoError(t, err)
	require.NoError(t, c.Compute(box, points, values, points, values))

	for i, v := range c.Correlation() {
		assert.InDelta(t, 0.0, v, 0.05, "bin %d", i)
	}
}

func TestCorrelationFunction_Complex(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{X: 0}, {X: 1}}
	values := []complex128{2i, 3}

	c, err := NewCorrelationFunction[complex128](2, 0.5)
	require.NoError(t, err)
	require.NoError(t, c.Compute(box, points, values, points, values))

	corr := c.Correlation()
	counts := c.Counts()
	// The pair lands in the bin holding distance 1, both orientations.
	assert.Equal(t, uint64(2), counts[2])
	assert.InDelta(t, 0.0, real(corr[2]), floatTol)
	assert.InDelta(t, 6.0, imag(corr[2]), floatTol)
}

func TestCorrelationFunction_ValueLengthMismatch(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{}, {X: 1}}

	c, err := NewCorrelationFunction[float64](2, 0.5)
	require.NoError(t, err)

	err = c.Accumulate(box, points, []float64{1}, points, []float64{1, 1})
	assert.Error(t, err)
	err = c.Accumulate(box, points, []float64{1, 1}, points, []float64{1})
	assert.Error(t, err)
}

func TestCorrelationFunction_DistinctSetsKeepCoincidentPairs(t *testing.T) {
	box := NewCubicBox(10)
	ref := []r3.Vec{{X: 0}}
	query := []r3.Vec{{X: 0}}

	c, err := NewCorrelationFunction[float64](2, 0.5)
	require.NoError(t, err)
	require.NoError(t, c.Accumulate(box, ref, []float64{2}, query, []float64{5}))

	assert.Equal(t, uint64(1), c.Counts()[0])
	assert.InDelta(t, 10.0, c.Correlation()[0], floatTol)
}

func TestCorrelationFunction_AccumulateMergesFrames(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{X: 0}, {X: 1}}

	c, err := NewCorrelationFunction[float64](2, 0.5)
	require.NoError(t, err)
	require.NoError(t, c.Accumulate(box, points, []float64{1, 1}, points, []float64{1, 1}))
	require.NoError(t, c.Accumulate(box, points, []float64{3, 3}, points, []float64{3, 3}))

	// Bin 2 holds 1·1 twice and 3·3 twice: mean 5.
	assert.Equal(t, uint64(4), c.Counts()[2])
	assert.InDelta(t, 5.0, c.Correlation()[2], floatTol)
}

func TestCorrelationFunction_Workers(t *testing.T) {
	rng := rand.New(rand.NewSource(52))
	box := NewCubicBox(10)
	points := randomPoints(rng, 300, 10)
	values := make([]float64, len(points))
	for i := range values {
		values[i] = rng.Float64()
	}

	serial, err := NewCorrelationFunction[float64](3, 0.25)
	require.NoError(t, err)
	serial.Workers = 1
	require.NoError(t, serial.Compute(box, points, values, points, values))

	parallel, err := NewCorrelationFunction[float64](3, 0.25)
	require.NoError(t, err)
	parallel.Workers = 8
	require.NoError(t, parallel.Compute(box, points, values, points, values))

	assert.Equal(t, serial.Counts(), parallel.Counts())
	assert.InDeltaSlice(t, serial.Correlation(), parallel.Correlation(), 1e-9)
}
