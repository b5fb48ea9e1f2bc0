package firecontrol

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

const cycleTimeSamples = 50

// RunnerStats describes how the runner has been keeping up.
type RunnerStats struct {
	Cycles           uint64        `json:"cycles"`
	Errors           uint64        `json:"errors"`
	Overruns         uint64        `json:"overruns"`
	AverageCycleTime time.Duration `json:"average_cycle_time"`
}

// A Runner calls Cycle on a coordinator at the configured frequency from a single goroutine.
type Runner struct {
	coord  *Coordinator
	clk    clock.Clock
	period time.Duration
	logger logging.Logger
	hooks  []func(Snapshot)

	workers  *utils.StoppableWorkers
	running  atomic.Bool
	cycles   atomic.Uint64
	errs     atomic.Uint64
	overruns atomic.Uint64

	mu        sync.Mutex
	cycleTime *utils.RollingAverage
}

// NewRunner returns a stopped runner. Each hook is called with the snapshot of every cycle, on
// the runner goroutine.
func NewRunner(coord *Coordinator, clk clock.Clock, logger logging.Logger, hooks ...func(Snapshot)) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	return &Runner{
		coord:     coord,
		clk:       clk,
		period:    time.Duration(float64(time.Second) / coord.cfg.FrequencyHz),
		logger:    logger,
		hooks:     hooks,
		cycleTime: utils.NewRollingAverage(cycleTimeSamples),
	}
}

// Period returns the time between two cycles.
func (r *Runner) Period() time.Duration {
	return r.period
}

// Start begins cycling in the background.
func (r *Runner) Start() error {
	if r.running.Swap(true) {
		return errors.New("fire control runner already started")
	}
	// the ticker exists before Start returns so no tick can be missed
	ticker := r.clk.Ticker(r.period)
	r.logger.Infow("fire control started", "period", r.period)
	r.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		defer ticker.Stop()
		r.loop(ctx, ticker.C)
	})
	return nil
}

func (r *Runner) loop(ctx context.Context, ticks <-chan time.Time) {
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
		start := r.clk.Now()
		snap, err := r.coord.Cycle(ctx)
		elapsed := r.clk.Since(start)
		r.cycles.Inc()

		switch {
		case err != nil && !failing:
			r.logger.Warnw("fire control cycle failed", "cycle", snap.Cycle, "error", err)
			failing = true
		case err != nil:
			r.logger.Debugw("fire control cycle failed", "cycle", snap.Cycle, "error", err)
		case failing:
			r.logger.Infow("fire control cycle recovered", "cycle", snap.Cycle)
			failing = false
		}
		if err != nil {
			r.errs.Inc()
		}
		if elapsed > r.period {
			r.overruns.Inc()
		}
		r.mu.Lock()
		r.cycleTime.Add(float64(elapsed))
		r.mu.Unlock()

		for _, hook := range r.hooks {
			hook(snap)
		}
	}
}

// Stop waits for the running cycle to finish and then stops every actuator.
func (r *Runner) Stop(ctx context.Context) error {
	if !r.running.Swap(false) {
		return nil
	}
	err := r.workers.Stop()
	r.logger.Infow("fire control stopped", "cycles", r.cycles.Load())
	return multierr.Combine(err, r.coord.Shutdown(ctx))
}

// Stats returns the runner counters.
func (r *Runner) Stats() RunnerStats {
	r.mu.Lock()
	avg := r.cycleTime.Average()
	r.mu.Unlock()
	return RunnerStats{
		Cycles:           r.cycles.Load(),
		Errors:           r.errs.Load(),
		Overruns:         r.overruns.Load(),
		AverageCycleTime: time.Duration(avg),
	}
}
