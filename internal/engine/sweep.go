package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SweepJob pairs session parameters with the engine that runs them, so a sweep
// can vary the allocation policy as well as the session parameters.
type SweepJob struct {
	Engine *Engine
	Params StartParams
}

// Sweep runs one independent session per parameter set, at most parallelism at
// a time. Sessions come back in the order of params. Sessions that fail during
// the run are still returned; only invalid parameters abort the sweep.
func Sweep(ctx context.Context, e *Engine, params []StartParams, parallelism int) ([]*Session, error) {
	jobs := make([]SweepJob, len(params))
	for i, p := range params {
		jobs[i] = SweepJob{Engine: e, Params: p}
	}
	return SweepJobs(ctx, jobs, parallelism)
}

func SweepJobs(ctx context.Context, jobs []SweepJob, parallelism int) ([]*Session, error) {
	sessions := make([]*Session, len(jobs))
	for i, job := range jobs {
		s, err := job.Engine.NewSession(job.Params)
		if err != nil {
			return nil, err
		}
		sessions[i] = s
	}

	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, s := range sessions {
		e := jobs[i].Engine
		g.Go(func() error {
			if err := e.Run(ctx, s); err != nil {
				e.log.Debug().Err(err).Str("session", s.ID()).Msg("sweep session ended early")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sessions, nil
}
