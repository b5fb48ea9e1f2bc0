package control

import (
	"context"
	"math"
	"time"

	"github.com/ftcshooter/firecontrol/logging"
)

// frictionCompensation adds a signed minimum power to a command while the error is large. Its
// inputs are, in order, the command and the error. A zero command is pushed positive.
type frictionCompensation struct {
	blockBase
	minPower       float64
	errorThreshold float64
}

func newFrictionCompensation(config BlockConfig, logger logging.Logger) (Block, error) {
	f := &frictionCompensation{}
	if err := f.init("friction compensation", config, logger, f.configureFriction); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *frictionCompensation) configureFriction() error {
	if err := f.requireAttribute("min_power"); err != nil {
		return err
	}
	if err := f.expectInputs(2); err != nil {
		return err
	}
	f.minPower = math.Abs(f.cfg.Attribute.Float64("min_power", 0))
	f.errorThreshold = math.Abs(f.cfg.Attribute.Float64("error_threshold", 0))
	f.resetOutput()
	return nil
}

func (f *frictionCompensation) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(x) != 2 {
		return f.y, false
	}
	cmd, e := x[0].GetSignalValueAt(0), x[1].GetSignalValueAt(0)
	switch {
	case math.Abs(e) <= f.errorThreshold:
	case cmd < 0:
		cmd -= f.minPower
	default:
		cmd += f.minPower
	}
	f.y[0].SetSignalValueAt(0, cmd)
	return f.y, true
}
