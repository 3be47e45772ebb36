package locality

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// AABBQuery is a spatial index over a set of reference points in a periodic
// box. It owns one AABBTree per particle type, a list of periodic image
// vectors, and a NeighborList that Compute fills with every (reference,
// query) pair closer than the cutoff.
//
// Trees are rebuilt whenever Compute is called with a new point set; there
// is no incremental update. All query paths are read-only with respect to
// the trees, so concurrent queries against a built index are safe. The
// iterators returned by QueryBall and QueryNearest are single-owner objects:
// they must not be shared between goroutines or outlive the index.
type AABBQuery struct {
	box       Box
	refPoints []r3.Vec
	types     []int
	trees     []*AABBTree
	nlist     NeighborList

	// Workers bounds the number of goroutines Compute uses for the
	// per-query-point traversal. 0 means runtime.NumCPU().
	Workers int

	// LeafCapacity is the maximum number of points per tree leaf.
	// 0 means DefaultLeafCapacity.
	LeafCapacity int
}

// NewAABBQuery builds an index over refPoints with a single particle type.
func NewAABBQuery(box Box, refPoints []r3.Vec) *AABBQuery {
	q := &AABBQuery{}
	q.setupTree(box, refPoints, nil)
	return q
}

// NewTypedAABBQuery builds one tree per distinct particle type. types[i] is
// the type tag of refPoints[i]; query results always report the original
// global indices.
func NewTypedAABBQuery(box Box, refPoints []r3.Vec, types []int) (*AABBQuery, error) {
	if len(types) != len(refPoints) {
		return nil, fmt.Errorf("locality: types length %d does not match %d points", len(types), len(refPoints))
	}
	q := &AABBQuery{}
	q.setupTree(box, refPoints, types)
	return q, nil
}

// setupTree partitions the points by type and rebuilds every tree. The
// particle-to-tree mapping lives only as the per-tree id arrays and is
// rebuilt from scratch on every call.
func (q *AABBQuery) setupTree(box Box, refPoints []r3.Vec, types []int) {
	q.box = box
	q.refPoints = refPoints
	q.types = types
	q.trees = q.trees[:0]

	if types == nil {
		ids := make([]int, len(refPoints))
		for i := range ids {
			ids[i] = i
		}
		q.trees = append(q.trees, NewAABBTree(refPoints, ids, q.LeafCapacity))
		return
	}

	// Group by type tag in first-seen order so rebuilds are deterministic.
	order := make([]int, 0)
	byType := make(map[int][]int)
	for i, tag := range types {
		if _, ok := byType[tag]; !ok {
			order = append(order, tag)
		}
		byType[tag] = append(byType[tag], i)
	}
	for _, tag := range order {
		members := byType[tag]
		pts := make([]r3.Vec, len(members))
		for local, global := range members {
			pts[local] = refPoints[global]
		}
		q.trees = append(q.trees, NewAABBTree(pts, members, q.LeafCapacity))
	}
}

// NumPoints returns the number of reference points in the index.
func (q *AABBQuery) NumPoints() int { return len(q.refPoints) }

// NeighborList returns the list populated by the last Compute call.
func (q *AABBQuery) NeighborList() *NeighborList { return &q.nlist }

// Compute rebuilds the index over refPoints and finds, for every point in
// points, every reference point within rcut across all periodic images,
// overwriting the owned NeighborList with (RefIdx, Idx, Distance) records.
// excludeII drops pairs whose reference and query indices are identical;
// it is meaningful only when both arguments are the same point set.
//
// The per-query traversals run in parallel (see Workers); records are merged
// back in query order, so the output is deterministic.
func (q *AABBQuery) Compute(box Box, rcut float64, refPoints, points []r3.Vec, excludeII bool) error {
	if rcut <= 0 {
		return fmt.Errorf("locality: cutoff must be > 0, got %v", rcut)
	}

	types := q.types
	if len(types) != len(refPoints) {
		types = nil
	}
	q.setupTree(box, refPoints, types)

	images := imageVectors(box, rcut)

	workers := clampWorkers(len(points), q.Workers)

	// Each query point writes only its own result slot, so the fan-out needs
	// no locking; the tree arrays are read-only for the whole sweep.
	results := make([][]NeighborRecord, len(points))
	var g errgroup.Group
	g.SetLimit(workers)

	chunk := (len(points) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(points); start += chunk {
		start := start // per-iteration copy; go directive predates 1.22 loop-var semantics
		end := min(start+chunk, len(points))
		g.Go(func() error {
			var slot map[int]int // reference id → position in found
			for i := start; i < end; i++ {
				var found []NeighborRecord
				clear(slot)
				for _, v := range images {
					qp := r3.Add(points[i], v)
					for _, t := range q.trees {
						t.ballSearch(qp, rcut, func(id int, d float64) {
							if excludeII && id == i {
								return
							}
							// A pair reachable through several images is
							// reported once, at its minimum distance.
							if len(images) > 1 {
								if slot == nil {
									slot = make(map[int]int)
								}
								if at, ok := slot[id]; ok {
									if d < found[at].Distance {
										found[at].Distance = d
									}
									return
								}
								slot[id] = len(found)
							}
							found = append(found, NeighborRecord{RefIdx: id, Idx: i, Distance: d})
						})
					}
				}
				results[i] = found
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	q.nlist.Reset()
	for _, recs := range results {
		for _, r := range recs {
			q.nlist.Append(r)
		}
	}
	return nil
}

// QueryBall returns a lazy iterator over every reference point within r of
// point, across all periodic images.
func (q *AABBQuery) QueryBall(point r3.Vec, r float64) (*BallIterator, error) {
	if r <= 0 {
		return nil, fmt.Errorf("locality: ball query radius must be > 0, got %v", r)
	}
	return &BallIterator{
		trees:   q.trees,
		point:   point,
		r:       r,
		images:  imageVectors(q.box, r),
		exclude: -1,
	}, nil
}

// QueryBallFrom runs a ball query centered on reference point i, excluding
// i itself from the results.
func (q *AABBQuery) QueryBallFrom(i int, r float64) (*BallIterator, error) {
	if i < 0 || i >= len(q.refPoints) {
		return nil, fmt.Errorf("locality: reference index %d out of range [0, %d)", i, len(q.refPoints))
	}
	it, err := q.QueryBall(q.refPoints[i], r)
	if err != nil {
		return nil, err
	}
	it.exclude = i
	return it, nil
}

// Query is the k-nearest-neighbor entry point without search parameters.
// The adaptive search cannot supply a sensible default initial radius or
// growth factor, so this form is always rejected; use QueryNearest.
func (q *AABBQuery) Query(point r3.Vec, k int) (*KNNIterator, error) {
	return nil, fmt.Errorf("locality: k-nearest-neighbor queries require an initial radius guess and scale; use QueryNearest")
}

// QueryNearest returns a lazy iterator over the k reference points nearest
// to point (fewer when the index holds fewer than k points), in ascending
// distance order. r is the initial probe radius and scale (> 1) the factor
// the radius grows by while too few neighbors are confirmed. k == 0 yields
// an immediately exhausted iterator.
func (q *AABBQuery) QueryNearest(point r3.Vec, k int, r, scale float64) (*KNNIterator, error) {
	if k < 0 {
		return nil, fmt.Errorf("locality: k must be >= 0, got %d", k)
	}
	if r <= 0 {
		return nil, fmt.Errorf("locality: initial radius guess must be > 0, got %v", r)
	}
	if scale <= 1 {
		return nil, fmt.Errorf("locality: scale must be > 1 for the search to converge, got %v", scale)
	}
	return &KNNIterator{
		trees:   q.trees,
		box:     q.box,
		total:   len(q.refPoints),
		point:   point,
		k:       k,
		r:       r,
		scale:   scale,
		exclude: -1,
	}, nil
}

// QueryNearestFrom runs a k-nearest-neighbor query from reference point i,
// excluding i itself from the results.
func (q *AABBQuery) QueryNearestFrom(i, k int, r, scale float64) (*KNNIterator, error) {
	if i < 0 || i >= len(q.refPoints) {
		return nil, fmt.Errorf("locality: reference index %d out of range [0, %d)", i, len(q.refPoints))
	}
	it, err := q.QueryNearest(q.refPoints[i], k, r, scale)
	if err != nil {
		return nil, err
	}
	it.exclude = i
	return it, nil
}
