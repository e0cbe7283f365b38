package sim

import (
	"context"
	"errors"
	"runtime"

	"github.com/san-kum/orbitsim/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job builds one independent engine and the run that drives it. Jobs must not
// share metrics or observers.
type Job func() (*Engine, RunConfig, error)

// Ensemble runs independent jobs on a bounded number of goroutines.
type Ensemble struct {
	Workers int
}

func NewEnsemble(workers int) *Ensemble {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{Workers: workers}
}

// Run executes every job. A job whose state diverges keeps its partial result
// with Diverged set; any other failure cancels the remaining jobs.
func (en *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(en.Workers)

	for i, job := range jobs {
		g.Go(func() error {
			e, cfg, err := job()
			if err != nil {
				return err
			}
			res, err := Run(ctx, e, cfg)
			if err != nil && !errors.Is(err, dynamo.ErrInvalidState) {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
