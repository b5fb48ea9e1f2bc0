package control

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
)

// basicPID is the standard implementation of a PID controller.
type basicPID struct {
	mu        sync.Mutex
	cfg       BlockConfig
	error     float64
	kI        float64
	kD        float64
	kP        float64
	int       float64
	intSatLim float64
	sat       int
	primed    bool
	y         []*Signal
	logger    logging.Logger
}

func newPID(config BlockConfig, logger logging.Logger) (Block, error) {
	p := &basicPID{cfg: config, logger: logger}
	if err := p.reset(); err != nil {
		return nil, err
	}
	return p, nil
}

// Next computes the discrete step of the PID controller. dt is the delta time between two
// subsequent calls and the single input is the error. While the integral is saturated it stops
// accumulating in the saturating direction. The derivative term is zero on the first step after a
// reset.
func (p *basicPID) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(x) != 1 {
		return p.y, false
	}
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.y, false
	}
	err := x[0].GetSignalValueAt(0)
	if !((p.sat > 0 && err > 0) || (p.sat < 0 && err < 0)) {
		p.int += p.kI * err * dtS
		switch {
		case p.intSatLim > 0 && p.int > p.intSatLim:
			p.int = p.intSatLim
			p.sat = 1
		case p.intSatLim > 0 && p.int < -p.intSatLim:
			p.int = -p.intSatLim
			p.sat = -1
		default:
			p.sat = 0
		}
	}
	deriv := 0.0
	if p.primed {
		deriv = (err - p.error) / dtS
	}
	output := p.kP*err + p.int + p.kD*deriv
	p.error = err
	p.primed = true
	p.y[0].SetSignalValueAt(0, output)
	return p.y, true
}

func (p *basicPID) reset() error {
	p.int = 0
	p.error = 0
	p.sat = 0
	p.primed = false

	if !p.cfg.Attribute.Has("kI") &&
		!p.cfg.Attribute.Has("kD") &&
		!p.cfg.Attribute.Has("kP") {
		return errors.Errorf("pid block %s should have at least one kI, kP or kD field", p.cfg.Name)
	}
	if len(p.cfg.DependsOn) != 1 {
		return errors.Errorf("pid block %s should have 1 input got %d", p.cfg.Name, len(p.cfg.DependsOn))
	}
	p.kI = p.cfg.Attribute.Float64("kI", 0.0)
	p.kD = p.cfg.Attribute.Float64("kD", 0.0)
	p.kP = p.cfg.Attribute.Float64("kP", 0.0)
	p.intSatLim = math.Abs(p.cfg.Attribute.Float64("int_sat_lim", 0.0))
	p.y = make([]*Signal, 1)
	p.y[0] = makeSignal(p.cfg.Name, p.cfg.Type)
	return nil
}

func (p *basicPID) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *basicPID) UpdateConfig(ctx context.Context, config BlockConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = config
	return p.reset()
}

func (p *basicPID) Output(ctx context.Context) []*Signal {
	return p.y
}

func (p *basicPID) Config(ctx context.Context) BlockConfig {
	return p.cfg
}
