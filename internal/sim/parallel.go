package sim

import (
	"context"
	"runtime"
	"sync"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/integrators"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// Job is one independent forward solve.
type Job struct {
	Nodes    []thermal.Node
	Edges    []thermal.Edge
	Settings thermal.Settings
}

// Batch solves independent jobs concurrently. Each job gets its own Simulator,
// so jobs share no state.
type Batch struct {
	workers int
}

// NewBatch returns a Batch running at most workers solves at once. A
// non-positive value means GOMAXPROCS.
func NewBatch(workers int) *Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Batch{workers: workers}
}

// Run returns one result and one error per job, in job order. A failed job
// leaves a nil result and does not stop the others.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]*thermal.Result, []error) {
	results := make([]*thermal.Result, len(jobs))
	errs := make([]error, len(jobs))

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			job := jobs[idx]
			s := New(integrators.NewEuler())
			results[idx], errs[idx] = s.Run(ctx, job.Nodes, job.Edges, job.Settings)
		}(i)
	}

	wg.Wait()
	return results, errs
}
