package locality

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// NeighborPoint is a single query result: reference point Idx at Distance
// from the query point. The zero value is the end-of-sequence sentinel.
type NeighborPoint struct {
	Idx      int
	Distance float64
}

// BallIterator lazily produces every reference point within a fixed radius
// of a fixed query point, across all periodic images. The order is
// deterministic: image order, then per-type tree order, then tree pre-order,
// then leaf-internal order.
//
// A BallIterator is single-owner and not restartable. Once exhausted, Next
// keeps returning (NeighborPoint{}, false) without re-traversing.
type BallIterator struct {
	trees   []*AABBTree
	point   r3.Vec
	r       float64
	images  []r3.Vec
	exclude int

	// Traversal state: Next resumes exactly where the previous call
	// returned from.
	image int
	tree  int
	node  int
	p     int
}

// Next returns the next reference point within the search radius, or a zero
// NeighborPoint and false when the sequence is exhausted.
func (it *BallIterator) Next() (NeighborPoint, bool) {
	for it.image < len(it.images) {
		qp := r3.Add(it.point, it.images[it.image])
		qb := PointAABB(qp, it.r)
		for it.tree < len(it.trees) {
			t := it.trees[it.tree]
			for it.node < len(t.nodes) {
				node := t.nodes[it.node]
				if !qb.Overlaps(node.bounds) {
					it.node += node.skip
					continue
				}
				if node.isLeaf() {
					for it.p < node.count {
						p := t.indices[node.start+it.p]
						it.p++
						if t.ids[p] == it.exclude {
							continue
						}
						d := r3.Norm(r3.Sub(qp, t.points[p]))
						if d <= it.r {
							return NeighborPoint{Idx: t.ids[p], Distance: d}, true
						}
					}
					it.p = 0
				}
				it.node++
			}
			it.node = 0
			it.tree++
		}
		it.tree = 0
		it.image++
	}
	return NeighborPoint{}, false
}

// KNNIterator lazily produces the k reference points nearest to a fixed
// query point, in ascending distance order. Because the k-th distance is
// unknown up front, the first Next call runs an adaptive search: probe at
// the current radius, and if fewer than k neighbors are confirmed (a
// candidate beyond the probe radius could still beat one inside it), grow
// the radius by scale and retry with a recomputed image list. A point seen
// through several periodic images counts once, at its minimum distance.
type KNNIterator struct {
	trees   []*AABBTree
	box     Box
	total   int
	point   r3.Vec
	k       int
	r       float64
	scale   float64
	exclude int

	ready     bool
	neighbors []NeighborPoint
	pos       int
}

// Next returns the next of the k nearest points, or a zero NeighborPoint
// and false when the sequence is exhausted.
func (it *KNNIterator) Next() (NeighborPoint, bool) {
	if !it.ready {
		it.search()
		it.ready = true
	}
	if it.pos >= len(it.neighbors) {
		return NeighborPoint{}, false
	}
	np := it.neighbors[it.pos]
	it.pos++
	return np, true
}

// search runs the radius-growth loop and finalizes the sorted result list.
// Termination is guaranteed: once every reference point has been seen the
// result is complete regardless of the probe radius, so the loop is bounded
// even when k exceeds the index size.
func (it *KNNIterator) search() {
	total := it.total
	if it.exclude >= 0 && it.exclude < it.total {
		total--
	}
	want := min(it.k, total)
	if want == 0 {
		return
	}

	r := it.r
	for {
		best := make(map[int]float64)
		for _, v := range imageVectors(it.box, r) {
			qp := r3.Add(it.point, v)
			for _, t := range it.trees {
				t.ballSearch(qp, r, func(id int, d float64) {
					if id == it.exclude {
						return
					}
					if old, ok := best[id]; !ok || d < old {
						best[id] = d
					}
				})
			}
		}

		if len(best) >= want {
			cand := make([]NeighborPoint, 0, len(best))
			for id, d := range best {
				cand = append(cand, NeighborPoint{Idx: id, Distance: d})
			}
			sort.Slice(cand, func(i, j int) bool {
				if cand[i].Distance != cand[j].Distance {
					return cand[i].Distance < cand[j].Distance
				}
				return cand[i].Idx < cand[j].Idx
			})
			// The k-th distance must sit inside the probed radius before the
			// k-set is provably correct, unless the whole index was seen.
			if cand[want-1].Distance <= r || len(best) == total {
				it.neighbors = cand[:want]
				return
			}
		}
		r *= it.scale
	}
}
