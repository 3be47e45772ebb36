package locality

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AABB is an axis-aligned bounding box defined by its min and max corners.
// The zero-volume box around a single point has Lo == Hi.
type AABB struct {
	Lo, Hi r3.Vec
}

// emptyAABB returns the identity element for Union: a box that contains
// nothing and overlaps nothing.
func emptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Lo: r3.Vec{X: inf, Y: inf, Z: inf},
		Hi: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// PointAABB returns the axis-aligned box of half-width hw centered at p.
func PointAABB(p r3.Vec, hw float64) AABB {
	d := r3.Vec{X: hw, Y: hw, Z: hw}
	return AABB{Lo: r3.Sub(p, d), Hi: r3.Add(p, d)}
}

// Union returns the smallest AABB enclosing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Lo: r3.Vec{X: math.Min(a.Lo.X, b.Lo.X), Y: math.Min(a.Lo.Y, b.Lo.Y), Z: math.Min(a.Lo.Z, b.Lo.Z)},
		Hi: r3.Vec{X: math.Max(a.Hi.X, b.Hi.X), Y: math.Max(a.Hi.Y, b.Hi.Y), Z: math.Max(a.Hi.Z, b.Hi.Z)},
	}
}

// Extend grows a to include the point p.
func (a AABB) Extend(p r3.Vec) AABB {
	return a.Union(AABB{Lo: p, Hi: p})
}

// Overlaps reports whether a and b intersect. Bounds are closed, so boxes
// that merely touch still overlap.
func (a AABB) Overlaps(b AABB) bool {
	return a.Lo.X <= b.Hi.X && a.Hi.X >= b.Lo.X &&
		a.Lo.Y <= b.Hi.Y && a.Hi.Y >= b.Lo.Y &&
		a.Lo.Z <= b.Hi.Z && a.Hi.Z >= b.Lo.Z
}

// Contains reports whether the point p lies inside a (closed bounds).
func (a AABB) Contains(p r3.Vec) bool {
	return p.X >= a.Lo.X && p.X <= a.Hi.X &&
		p.Y >= a.Lo.Y && p.Y <= a.Hi.Y &&
		p.Z >= a.Lo.Z && p.Z <= a.Hi.Z
}

// Translate returns a shifted by v.
func (a AABB) Translate(v r3.Vec) AABB {
	return AABB{Lo: r3.Add(a.Lo, v), Hi: r3.Add(a.Hi, v)}
}
