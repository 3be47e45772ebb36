package locality

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a periodic simulation box, possibly triclinic (sheared). The box
// matrix has lattice vectors a1 = (Lx, 0, 0), a2 = (xy*Ly, Ly, 0) and
// a3 = (xz*Lz, yz*Lz, Lz) as columns; xy, xz and yz are the tilt factors.
// A 2D box has Lz = 0 and suppresses every z component.
//
// A zero-length axis is non-periodic: separations along it are never wrapped
// and no periodic images are generated for it. The zero Box is free space.
type Box struct {
	lx, ly, lz float64
	xy, xz, yz float64
	is2D       bool
}

// NewBox creates a 3D triclinic box from edge lengths and tilt factors.
func NewBox(lx, ly, lz, xy, xz, yz float64) Box {
	return Box{lx: lx, ly: ly, lz: lz, xy: xy, xz: xz, yz: yz}
}

// NewCubicBox creates a 3D cubic box with edge length l.
func NewCubicBox(l float64) Box {
	return Box{lx: l, ly: l, lz: l}
}

// NewSquareBox creates a 2D square box with edge length l.
func NewSquareBox(l float64) Box {
	return Box{lx: l, ly: l, is2D: true}
}

// New2DBox creates a 2D box with edge lengths lx, ly and tilt factor xy.
func New2DBox(lx, ly, xy float64) Box {
	return Box{lx: lx, ly: ly, xy: xy, is2D: true}
}

func (b Box) Lx() float64 { return b.lx }
func (b Box) Ly() float64 { return b.ly }
func (b Box) Lz() float64 { return b.lz }

// TiltFactors returns the xy, xz and yz tilt factors.
func (b Box) TiltFactors() (xy, xz, yz float64) { return b.xy, b.xz, b.yz }

// Is2D reports whether the box is two-dimensional.
func (b Box) Is2D() bool { return b.is2D }

// Volume returns the box volume, or the area for a 2D box.
func (b Box) Volume() float64 {
	if b.is2D {
		return b.lx * b.ly
	}
	return b.lx * b.ly * b.lz
}

// LatticeVector returns the real-space translation for the integer lattice
// offset (i, j, k). The z offset is ignored for 2D boxes.
func (b Box) LatticeVector(i, j, k int) r3.Vec {
	fi, fj := float64(i), float64(j)
	if b.is2D {
		return r3.Vec{X: fi*b.lx + fj*b.ly*b.xy, Y: fj * b.ly}
	}
	fk := float64(k)
	return r3.Vec{
		X: fi*b.lx + fj*b.ly*b.xy + fk*b.lz*b.xz,
		Y: fj*b.ly + fk*b.lz*b.yz,
		Z: fk * b.lz,
	}
}

// fractional converts a real-space vector to fractional coordinates relative
// to the box center, inverting the (upper triangular) box matrix.
func (b Box) fractional(v r3.Vec) r3.Vec {
	var f r3.Vec
	if !b.is2D && b.lz > 0 {
		f.Z = v.Z / b.lz
	}
	if b.ly > 0 {
		f.Y = (v.Y - b.yz*b.lz*f.Z) / b.ly
	}
	if b.lx > 0 {
		f.X = (v.X - b.xy*b.ly*f.Y - b.xz*b.lz*f.Z) / b.lx
	}
	return f
}

// absolute converts fractional coordinates back to real space.
func (b Box) absolute(f r3.Vec) r3.Vec {
	v := r3.Vec{
		X: b.lx*f.X + b.xy*b.ly*f.Y + b.xz*b.lz*f.Z,
		Y: b.ly*f.Y + b.yz*b.lz*f.Z,
		Z: b.lz * f.Z,
	}
	if b.is2D {
		v.Z = 0
	}
	return v
}

// Wrap returns the minimum image of the separation vector v: the equivalent
// vector with every fractional coordinate in [-1/2, 1/2).
func (b Box) Wrap(v r3.Vec) r3.Vec {
	f := b.fractional(v)
	f.X -= math.Round(f.X)
	f.Y -= math.Round(f.Y)
	if !b.is2D {
		f.Z -= math.Round(f.Z)
	} else {
		f.Z = 0
	}
	return b.absolute(f)
}
