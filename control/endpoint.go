package control

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
)

// Controllable is the actuator a control loop drives. State returns the measured value the loop
// feeds back; SetState receives the final command.
type Controllable interface {
	SetState(ctx context.Context, state []*Signal) error
	State(ctx context.Context) ([]float64, error)
}

type endpoint struct {
	mu     sync.Mutex
	ctr    Controllable
	cfg    BlockConfig
	y      []*Signal
	logger logging.Logger
}

func newEndpoint(config BlockConfig, logger logging.Logger, ctr Controllable) (Block, error) {
	e := &endpoint{cfg: config, logger: logger, ctr: ctr}
	if err := e.reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Next writes the inputs to the actuator when given any, otherwise it reads the actuator state.
func (e *endpoint) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	var err error
	if len(x) > 0 {
		err = e.writeCommand(ctx, x)
	} else {
		err = e.readState(ctx)
	}
	if err != nil {
		e.logger.Debugw("endpoint step failed", "block", e.cfg.Name, "error", err)
		return e.y, false
	}
	return e.y, true
}

func (e *endpoint) readState(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctr == nil {
		return errors.Errorf("endpoint %s has no controllable attached", e.cfg.Name)
	}
	state, err := e.ctr.State(ctx)
	if err != nil {
		return errors.Wrapf(err, "endpoint %s", e.cfg.Name)
	}
	if len(state) == 0 {
		return errors.Errorf("endpoint %s returned an empty state", e.cfg.Name)
	}
	e.y[0].SetSignalValueAt(0, state[0])
	return nil
}

func (e *endpoint) writeCommand(ctx context.Context, x []*Signal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctr == nil {
		return errors.Errorf("endpoint %s has no controllable attached", e.cfg.Name)
	}
	return errors.Wrapf(e.ctr.SetState(ctx, x), "endpoint %s", e.cfg.Name)
}

func (e *endpoint) reset() error {
	if len(e.cfg.DependsOn) != 1 {
		return errors.Errorf("invalid number of inputs for endpoint block %s expected 1 got %d", e.cfg.Name, len(e.cfg.DependsOn))
	}
	e.y = make([]*Signal, 1)
	e.y[0] = makeSignal(e.cfg.Name, e.cfg.Type)
	return nil
}

func (e *endpoint) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reset()
}

func (e *endpoint) UpdateConfig(ctx context.Context, config BlockConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = config
	return e.reset()
}

func (e *endpoint) Output(ctx context.Context) []*Signal {
	return e.y
}

func (e *endpoint) Config(ctx context.Context) BlockConfig {
	return e.cfg
}
