package chunk

import (
	"context"
	"runtime"
	"sync"

	"github.com/pflow-xyz/go-qre/cra"
)

// ParallelRun scans the chunks concurrently with a bounded worker pool
// and reduces the resulting tables into the table for the whole stream.
// Workers own independent machine configurations; results are combined
// only once complete and immutable. workers <= 0 selects GOMAXPROCS.
func ParallelRun(ctx context.Context, m *cra.Machine, chunks [][]cra.Symbol, workers int) (*RunResult, error) {
	if !m.Parallelizable() {
		return nil, ErrNotParallel
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if len(chunks) == 0 {
		return Empty(m)
	}

	results := make([]*RunResult, len(chunks))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// keep draining after a failure so the feeder never blocks
			for i := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				r, err := Run(m, chunks[i])
				if err != nil {
					fail(err)
					continue
				}
				results[i] = r
			}
		}()
	}

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return Reduce(m, results...)
}
