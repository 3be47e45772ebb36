package locality

import (
	"runtime"
	"sync"
)

// clampWorkers resolves a worker count against the job size. workers <= 0
// selects runtime.NumCPU(); the result is always in [1, n] for n > 0.
func clampWorkers(n, workers int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n < workers {
		workers = max(n, 1)
	}
	return workers
}

// parallelFor splits [0, n) into contiguous per-worker chunks and runs body
// concurrently, blocking until all chunks finish. slot is the worker's index
// in [0, workers) for addressing per-worker scratch space. Chunks are
// disjoint, so bodies writing only to their own range or slot need no
// synchronization.
func parallelFor(n, workers int, body func(slot, start, end int)) {
	workers = clampWorkers(n, workers)
	if workers == 1 {
		body(0, 0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			body(w, start, end)
		}(w, start, end)
	}
	wg.Wait()
}
