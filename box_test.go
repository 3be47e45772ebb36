package locality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const floatTol = 1e-9

func TestBox_WrapOrthorhombic(t *testing.T) {
	box := NewBox(10, 20, 30, 0, 0, 0)

	// Already minimal: unchanged.
	v := box.Wrap(r3.Vec{X: 1, Y: 2, Z: 3})
	assert.InDelta(t, 1.0, v.X, floatTol)
	assert.InDelta(t, 2.0, v.Y, floatTol)
	assert.InDelta(t, 3.0, v.Z, floatTol)

	// Separation longer than half a box length wraps to the near image.
	v = box.Wrap(r3.Vec{X: 9, Y: -19, Z: 16})
	assert.InDelta(t, -1.0, v.X, floatTol)
	assert.InDelta(t, 1.0, v.Y, floatTol)
	assert.InDelta(t, -14.0, v.Z, floatTol)
}

func TestBox_Wrap2DIgnoresZ(t *testing.T) {
	box := NewSquareBox(10)
	v := box.Wrap(r3.Vec{X: 8, Y: -7, Z: 42})
	assert.InDelta(t, -2.0, v.X, floatTol)
	assert.InDelta(t, 3.0, v.Y, floatTol)
	assert.Zero(t, v.Z)
}

func TestBox_WrapTriclinic(t *testing.T) {
	// Sheared box: the y displacement drags x along with tilt factor xy.
	box := NewBox(10, 10, 10, 0.5, 0, 0)

	// A full a2 lattice vector must wrap to zero.
	a2 := box.LatticeVector(0, 1, 0)
	v := box.Wrap(a2)
	assert.InDelta(t, 0.0, v.X, floatTol)
	assert.InDelta(t, 0.0, v.Y, floatTol)
	assert.InDelta(t, 0.0, v.Z, floatTol)
}

func TestBox_WrapFreeSpace(t *testing.T) {
	// The zero box is non-periodic: Wrap is the identity.
	var box Box
	v := box.Wrap(r3.Vec{X: 100, Y: -200, Z: 300})
	assert.Equal(t, r3.Vec{X: 100, Y: -200, Z: 300}, v)
}

func TestBox_LatticeVectorTriclinic(t *testing.T) {
	box := NewBox(2, 4, 6, 0.5, 0.25, 0.125)

	v := box.LatticeVector(1, 0, 0)
	assert.Equal(t, r3.Vec{X: 2}, v)

	v = box.LatticeVector(0, 1, 0)
	require.InDelta(t, 0.5*4, v.X, floatTol)
	require.InDelta(t, 4.0, v.Y, floatTol)
	require.Zero(t, v.Z)

	v = box.LatticeVector(0, 0, 1)
	require.InDelta(t, 0.25*6, v.X, floatTol)
	require.InDelta(t, 0.125*6, v.Y, floatTol)
	require.InDelta(t, 6.0, v.Z, floatTol)
}

func TestBox_Volume(t *testing.T) {
	assert.InDelta(t, 1000.0, NewCubicBox(10).Volume(), floatTol)
	assert.InDelta(t, 100.0, NewSquareBox(10).Volume(), floatTol)
	// Shear does not change the volume.
	assert.InDelta(t, 1000.0, NewBox(10, 10, 10, 0.7, 0.3, 0.1).Volume(), floatTol)
}
