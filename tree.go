package locality

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultLeafCapacity is the maximum number of points per leaf node used
// when no explicit capacity is given.
const DefaultLeafCapacity = 16

// treeNode is one node of an AABBTree. Nodes are stored in pre-order, so the
// left child of an internal node is the next node in the array and skip is
// the total node count of the subtree rooted here: a traversal that prunes
// node i resumes at i+skip.
type treeNode struct {
	bounds AABB
	skip   int
	start  int // leaf only: offset into the permutation array
	count  int // leaf only: number of points; 0 marks an internal node
}

func (n treeNode) isLeaf() bool { return n.count > 0 }

// AABBTree is a balanced bounding volume hierarchy over a set of points,
// stored as a flat pre-order node arena. Points are treated as zero-volume
// AABBs; leaves hold contiguous ranges of an index permutation array mapping
// tree-order positions back to caller indices.
//
// The tree is immutable once built and safe for concurrent read-only queries.
type AABBTree struct {
	nodes   []treeNode
	indices []int    // permutation: tree-order position → position in points
	ids     []int    // position in points → caller-visible index
	points  []r3.Vec // copy of the input positions
	leafCap int
}

// NewAABBTree builds a tree over points with the given leaf capacity.
// ids maps each point to the index reported in query results; a nil ids
// means points are reported by their own positions. leafCap <= 0 selects
// DefaultLeafCapacity. Non-finite coordinates are a caller bug and produce
// an unspecified tree shape.
func NewAABBTree(points []r3.Vec, ids []int, leafCap int) *AABBTree {
	if leafCap <= 0 {
		leafCap = DefaultLeafCapacity
	}
	n := len(points)

	pts := make([]r3.Vec, n)
	copy(pts, points)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if ids == nil {
		ids = make([]int, n)
		for i := range ids {
			ids[i] = i
		}
	}

	t := &AABBTree{
		nodes:   make([]treeNode, 0, 2*(n/leafCap+1)),
		indices: indices,
		ids:     ids,
		points:  pts,
		leafCap: leafCap,
	}
	if n > 0 {
		t.build(0, n)
	}
	return t
}

// build emits the subtree covering indices[start:end) in pre-order and
// returns its node count.
func (t *AABBTree) build(start, end int) int {
	nodeID := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{})

	bounds := emptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Extend(t.points[t.indices[i]])
	}

	count := end - start
	if count <= t.leafCap {
		t.nodes[nodeID] = treeNode{bounds: bounds, skip: 1, start: start, count: count}
		return 1
	}

	// Split on the axis with the largest extent at the median. Sorting the
	// permutation sub-slice guarantees both halves are non-empty even for
	// degenerate (colinear or identical) coordinates.
	axis := largestExtentAxis(bounds)
	t.sortByAxis(start, end, axis)
	mid := start + count/2

	nLeft := t.build(start, mid)
	nRight := t.build(mid, end)
	t.nodes[nodeID] = treeNode{bounds: bounds, skip: 1 + nLeft + nRight}
	return 1 + nLeft + nRight
}

// largestExtentAxis returns 0, 1 or 2 for the widest axis of b.
func largestExtentAxis(b AABB) int {
	ex := b.Hi.X - b.Lo.X
	ey := b.Hi.Y - b.Lo.Y
	ez := b.Hi.Z - b.Lo.Z
	axis := 0
	best := ex
	if ey > best {
		axis, best = 1, ey
	}
	if ez > best {
		axis = 2
	}
	return axis
}

func axisCoord(p r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// sortByAxis sorts indices[start:end] by the point coordinate on axis.
func (t *AABBTree) sortByAxis(start, end, axis int) {
	sub := t.indices[start:end]
	pts := t.points
	sort.Slice(sub, func(i, j int) bool {
		return axisCoord(pts[sub[i]], axis) < axisCoord(pts[sub[j]], axis)
	})
}

// NumPoints returns the number of points in the tree.
func (t *AABBTree) NumPoints() int { return len(t.points) }

// NumNodes returns the total number of nodes.
func (t *AABBTree) NumNodes() int { return len(t.nodes) }

// RootBounds returns the AABB of the root node, or an empty AABB for a tree
// with no points.
func (t *AABBTree) RootBounds() AABB {
	if len(t.nodes) == 0 {
		return emptyAABB()
	}
	return t.nodes[0].bounds
}

// ballSearch finds every point within r of the (already translated) query
// point q whose AABB of half-width r overlaps the visited nodes, calling
// emit with the caller-visible index and exact distance for each hit.
func (t *AABBTree) ballSearch(q r3.Vec, r float64, emit func(id int, dist float64)) {
	qb := PointAABB(q, r)
	for idx := 0; idx < len(t.nodes); {
		node := t.nodes[idx]
		if !qb.Overlaps(node.bounds) {
			idx += node.skip
			continue
		}
		if node.isLeaf() {
			for i := node.start; i < node.start+node.count; i++ {
				p := t.indices[i]
				d := r3.Norm(r3.Sub(q, t.points[p]))
				if d <= r {
					emit(t.ids[p], d)
				}
			}
		}
		idx++
	}
}
