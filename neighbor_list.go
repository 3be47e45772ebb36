package locality

import "sort"

// NeighborRecord is one found pair: reference particle RefIdx is within
// Distance of query particle Idx.
type NeighborRecord struct {
	RefIdx   int
	Idx      int
	Distance float64
}

// NeighborList is a flat append-only container of neighbor pairs. It is
// filled by AABBQuery.Compute and read back by analysis routines; the index
// never reads it itself.
type NeighborList struct {
	records []NeighborRecord
}

// Append adds a record to the list.
func (l *NeighborList) Append(r NeighborRecord) {
	l.records = append(l.records, r)
}

// Len returns the number of stored records.
func (l *NeighborList) Len() int { return len(l.records) }

// Records returns the backing record slice. Callers must not modify it.
func (l *NeighborList) Records() []NeighborRecord { return l.records }

// Reset empties the list, keeping its capacity.
func (l *NeighborList) Reset() { l.records = l.records[:0] }

// Sort orders records by query index, then distance, then reference index.
// Consumers that walk per-query runs rely on this ordering.
func (l *NeighborList) Sort() {
	sort.Slice(l.records, func(i, j int) bool {
		a, b := l.records[i], l.records[j]
		if a.Idx != b.Idx {
			return a.Idx < b.Idx
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.RefIdx < b.RefIdx
	})
}
