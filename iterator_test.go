package locality

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func drain(it *BallIterator) []NeighborPoint {
	var out []NeighborPoint
	for np, ok := it.Next(); ok; np, ok = it.Next() {
		out = append(out, np)
	}
	return out
}

func drainKNN(it *KNNIterator) []NeighborPoint {
	var out []NeighborPoint
	for np, ok := it.Next(); ok; np, ok = it.Next() {
		out = append(out, np)
	}
	return out
}

func TestBallIterator_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	box := NewCubicBox(10)
	points := randomPoints(rng, 200, 10)
	q := NewAABBQuery(box, points)

	for trial := 0; trial < 10; trial++ {
		p := points[rng.Intn(len(points))]
		r := 0.5 + rng.Float64()

		it, err := q.QueryBall(p, r)
		require.NoError(t, err)

		got := make(map[int]float64)
		for _, np := range drain(it) {
			got[np.Idx] = np.Distance
		}

		want := make(map[int]float64)
		for i, ref := range points {
			d := r3.Norm(box.Wrap(r3.Sub(ref, p)))
			if d <= r {
				want[i] = d
			}
		}
		assert.Equal(t, len(want), len(got))
		for id, d := range want {
			assert.InDelta(t, d, got[id], 1e-9)
		}
	}
}

func TestBallIterator_ExhaustionIsIdempotent(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{X: 0}, {X: 1}, {X: 4}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryBall(r3.Vec{X: 0}, 1.5)
	require.NoError(t, err)

	results := drain(it)
	assert.Len(t, results, 2)

	for i := 0; i < 5; i++ {
		np, ok := it.Next()
		assert.False(t, ok)
		assert.Equal(t, NeighborPoint{}, np)
	}
}

func TestBallIterator_DeterministicOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	box := NewCubicBox(10)
	points := randomPoints(rng, 100, 10)
	q := NewAABBQuery(box, points)

	p := r3.Vec{X: 1, Y: 1, Z: 1}
	it1, err := q.QueryBall(p, 2)
	require.NoError(t, err)
	it2, err := q.QueryBall(p, 2)
	require.NoError(t, err)

	assert.Equal(t, drain(it1), drain(it2))
}

func TestBallIterator_InvalidRadius(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(1), []r3.Vec{{}})
	_, err := q.QueryBall(r3.Vec{}, 0)
	assert.Error(t, err)
	_, err = q.QueryBall(r3.Vec{}, -2)
	assert.Error(t, err)
}

func TestKNN_NearestFromIndexedPoint(t *testing.T) {
	// k=1 from point 0 with guess 0.05: point 1 at distance 0.05 is
	// confirmed on the first probe since the k-th distance equals the
	// probe radius. Point 0 itself is excluded.
	var box Box
	points := []r3.Vec{{X: 0}, {X: 0.05}, {X: 0.9}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryNearestFrom(0, 1, 0.05, 2.0)
	require.NoError(t, err)

	np, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 1, np.Idx)
	assert.InDelta(t, 0.05, np.Distance, floatTol)

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestKNN_NearestWithoutExclusion(t *testing.T) {
	// Querying by coordinate keeps a coincident reference point in the
	// results at distance zero.
	var box Box
	points := []r3.Vec{{X: 0}, {X: 0.05}, {X: 0.9}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryNearest(r3.Vec{X: 0}, 1, 0.05, 2.0)
	require.NoError(t, err)

	np, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 0, np.Idx)
	assert.Zero(t, np.Distance)
}

func TestBallIterator_FromIndexedPoint(t *testing.T) {
	var box Box
	points := []r3.Vec{{X: 0}, {X: 0.05}, {X: 0.9}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryBallFrom(0, 0.1)
	require.NoError(t, err)

	results := drain(it)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Idx)

	_, err = q.QueryBallFrom(3, 0.1)
	assert.Error(t, err)
	_, err = q.QueryBallFrom(-1, 0.1)
	assert.Error(t, err)
}

func TestKNN_FromIndexOutOfRange(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), []r3.Vec{{}})
	_, err := q.QueryNearestFrom(1, 1, 0.5, 2)
	assert.Error(t, err)
}

func TestKNN_RadiusGrowth(t *testing.T) {
	// All points are far beyond the initial guess; the search must grow
	// until it can prove the k-set.
	var box Box
	points := []r3.Vec{{X: 5}, {X: 6}, {X: 7}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryNearest(r3.Vec{}, 2, 0.01, 2.0)
	require.NoError(t, err)

	results := drainKNN(it)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Idx)
	assert.Equal(t, 1, results[1].Idx)
	assert.InDelta(t, 5, results[0].Distance, floatTol)
	assert.InDelta(t, 6, results[1].Distance, floatTol)
}

func TestKNN_SmallerIndexThanK(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{X: 0}, {X: 1}, {X: 2}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryNearest(r3.Vec{X: 0.1}, 10, 0.5, 2.0)
	require.NoError(t, err)

	results := drainKNN(it)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	ids := []int{results[0].Idx, results[1].Idx, results[2].Idx}
	sort.Ints(ids)
	assert.Equal(t, []int{0, 1, 2}, ids)
}

func TestKNN_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	box := NewCubicBox(10)
	points := randomPoints(rng, 150, 10)
	q := NewAABBQuery(box, points)

	for trial := 0; trial < 10; trial++ {
		p := r3.Vec{
			X: (rng.Float64() - 0.5) * 10,
			Y: (rng.Float64() - 0.5) * 10,
			Z: (rng.Float64() - 0.5) * 10,
		}
		k := 1 + rng.Intn(8)

		it, err := q.QueryNearest(p, k, 0.2, 1.5)
		require.NoError(t, err)
		got := drainKNN(it)
		require.Len(t, got, k)

		type distIdx struct {
			dist float64
			idx  int
		}
		all := make([]distIdx, len(points))
		for i, ref := range points {
			all[i] = distIdx{dist: r3.Norm(box.Wrap(r3.Sub(ref, p))), idx: i}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].dist != all[j].dist {
				return all[i].dist < all[j].dist
			}
			return all[i].idx < all[j].idx
		})

		for i := 0; i < k; i++ {
			assert.InDelta(t, all[i].dist, got[i].Distance, 1e-9, "k=%d rank=%d", k, i)
		}
	}
}

func TestKNN_PeriodicNeighborAcrossBoundary(t *testing.T) {
	box := NewCubicBox(10)
	points := []r3.Vec{{X: 4.9}, {X: 0}}
	q := NewAABBQuery(box, points)

	it, err := q.QueryNearest(r3.Vec{X: -4.9}, 1, 0.1, 2.0)
	require.NoError(t, err)

	np, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 0, np.Idx)
	assert.InDelta(t, 0.2, np.Distance, 1e-6)
}

func TestKNN_ZeroK(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), []r3.Vec{{}, {X: 1}})
	it, err := q.QueryNearest(r3.Vec{}, 0, 1, 2)
	require.NoError(t, err)

	np, ok := it.Next()
	assert.False(t, ok)
	assert.Equal(t, NeighborPoint{}, np)
}

func TestKNN_EmptyIndex(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), nil)
	it, err := q.QueryNearest(r3.Vec{}, 3, 1, 2)
	require.NoError(t, err)

	_, ok := it.Next()
	assert.False(t, ok)
}

func TestKNN_RejectsMissingGuess(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), []r3.Vec{{}})
	_, err := q.Query(r3.Vec{}, 3)
	assert.Error(t, err)
}

func TestKNN_InvalidParameters(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), []r3.Vec{{}})

	_, err := q.QueryNearest(r3.Vec{}, 1, 0, 2)
	assert.Error(t, err)

	_, err = q.QueryNearest(r3.Vec{}, 1, 1, 1)
	assert.Error(t, err)

	_, err = q.QueryNearest(r3.Vec{}, 1, 1, 0.5)
	assert.Error(t, err)

	_, err = q.QueryNearest(r3.Vec{}, -1, 1, 2)
	assert.Error(t, err)
}

func TestKNN_ExhaustionIsIdempotent(t *testing.T) {
	q := NewAABBQuery(NewCubicBox(10), []r3.Vec{{}, {X: 1}})
	it, err := q.QueryNearest(r3.Vec{}, 2, 0.5, 2)
	require.NoError(t, err)

	results := drainKNN(it)
	assert.Len(t, results, 2)
	for i := 0; i < 3; i++ {
		_, ok := it.Next()
		assert.False(t, ok)
	}
}
