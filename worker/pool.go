package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pyxol/protostar/job"
)

// Pool runs Config.Concurrency workers against the same queue in one
// process. The workers share the broker and with it the adopted queue
// generation.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger
}

// NewPool creates a pool. With more than one worker each ID gets a
// "-<n>" suffix.
func NewPool(b Broker, reg *job.Registry, opts ...Option) (*Pool, error) {
	s := newSettings(opts)

	n := s.config.Concurrency
	if n < 1 {
		n = 1
	}

	base := s.id
	p := &Pool{
		workers: make([]*Worker, 0, n),
		logger:  s.logger,
	}
	for i := range n {
		ws := s
		if n > 1 {
			ws.id = fmt.Sprintf("%s-%d", base, i+1)
		}
		w, err := newWorker(b, reg, ws)
		if err != nil {
			return nil, err
		}
		p.workers = append(p.workers, w)
	}
	return p, nil
}

// Workers returns the pool's workers.
func (p *Pool) Workers() []*Worker { return p.workers }

// Run starts every worker and waits for all of them. When one worker stops
// for a restart the others stop polling, finish the job they hold and Run
// returns protostar.ErrRestartRequested; on ctx cancellation it returns nil.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool starting",
		slog.Int("concurrency", len(p.workers)),
		slog.String("queue", p.workers[0].Queue()),
	)

	pollCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	for _, w := range p.workers {
		g.Go(func() error {
			err := w.Run(pollCtx)
			if err != nil {
				stop()
			}
			return err
		})
	}
	err := g.Wait()

	p.logger.Info("worker pool stopped")
	return err
}
