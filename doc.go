// Package locality builds spatial indexes over points in periodic
// (possibly triclinic) simulation boxes and computes neighbor-based
// analysis quantities from them.
//
// The core type is AABBQuery, a bounding volume hierarchy of axis-aligned
// bounding boxes rebuilt per frame. Periodic boundaries are handled by
// translating the query by every relevant image vector; images that cannot
// reach the tree are rejected by cheap AABB overlap tests.
//
// Full pairwise sweep into a neighbor list:
//
//	q := locality.NewAABBQuery(box, points)
//	err := q.Compute(box, rcut, points, points, true)
//	for _, rec := range q.NeighborList().Records() {
//		// rec.RefIdx is within rec.Distance of rec.Idx
//	}
//
// Lazy per-point queries:
//
//	it, err := q.QueryBall(p, r)            // all points within r
//	it, err := q.QueryNearest(p, k, r0, 2)  // k nearest, adaptive radius
//	for np, ok := it.Next(); ok; np, ok = it.Next() { ... }
//
// On top of the index the package provides common particle-simulation
// analyses: the radial distribution function (RDF), local density
// estimates (LocalDensity), generic pairwise correlation functions
// (CorrelationFunction), bond-orientational order (Hexatic), the cubatic
// order parameter (Cubatic), and periodic ghost-point replication for
// Voronoi constructions (VoronoiBuffer).
package locality
