package control

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

const (
	feedforwardInputVelocity = "velocity"
	feedforwardInputPosition = "position"
)

// feedforward computes kV*v + kA*a + kS*sign(v) from a target. When the input is a position
// target the velocity is its finite difference, limited to ±max_velocity when that is set. The
// acceleration comes only from an optional second input, so a step in the target never produces
// an acceleration term.
type feedforward struct {
	mu        sync.Mutex
	cfg       BlockConfig
	kV        float64
	kA        float64
	kS        float64
	maxVel    float64
	input     string
	lastInput float64
	primed    bool
	y         []*Signal
	logger    logging.Logger
}

func newFeedforward(config BlockConfig, logger logging.Logger) (Block, error) {
	f := &feedforward{cfg: config, logger: logger}
	if err := f.reset(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *feedforward) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(x) != len(f.cfg.DependsOn) {
		return f.y, false
	}
	dtS := dt.Seconds()
	if dtS <= 0 {
		return f.y, false
	}
	in := x[0].GetSignalValueAt(0)
	vel := in
	if f.input == feedforwardInputPosition {
		vel = 0
		if f.primed {
			vel = (in - f.lastInput) / dtS
		}
		if f.maxVel > 0 {
			vel = utils.ClampSymmetric(vel, f.maxVel)
		}
	}
	acc := 0.0
	if len(x) == 2 {
		acc = x[1].GetSignalValueAt(0)
	}
	f.lastInput = in
	f.primed = true
	f.y[0].SetSignalValueAt(0, f.kV*vel+f.kA*acc+f.kS*utils.Sign(vel))
	return f.y, true
}

func (f *feedforward) reset() error {
	f.lastInput = 0
	f.primed = false

	if n := len(f.cfg.DependsOn); n != 1 && n != 2 {
		return errors.Errorf("invalid number of inputs for feedforward block %s expected 1 or 2 got %d", f.cfg.Name, n)
	}
	f.input = f.cfg.Attribute.String("input")
	if f.input == "" {
		f.input = feedforwardInputVelocity
	}
	if f.input != feedforwardInputVelocity && f.input != feedforwardInputPosition {
		return errors.Errorf("feedforward block %s input must be %q or %q, got %q",
			f.cfg.Name, feedforwardInputVelocity, feedforwardInputPosition, f.input)
	}
	f.kV = f.cfg.Attribute.Float64("kV", 0.0)
	f.kA = f.cfg.Attribute.Float64("kA", 0.0)
	f.kS = f.cfg.Attribute.Float64("kS", 0.0)
	f.maxVel = math.Abs(f.cfg.Attribute.Float64("max_velocity", 0.0))
	f.y = make([]*Signal, 1)
	f.y[0] = makeSignal(f.cfg.Name, f.cfg.Type)
	return nil
}

func (f *feedforward) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reset()
}

func (f *feedforward) UpdateConfig(ctx context.Context, config BlockConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = config
	return f.reset()
}

func (f *feedforward) Output(ctx context.Context) []*Signal {
	return f.y
}

func (f *feedforward) Config(ctx context.Context) BlockConfig {
	return f.cfg
}
