package control

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// constant outputs constant_val and takes no input.
type constant struct {
	blockBase
	value float64
}

func newConstant(config BlockConfig, logger logging.Logger) (Block, error) {
	c := &constant{}
	if err := c.init("constant", config, logger, c.configureConstant); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *constant) configureConstant() error {
	if err := c.requireAttribute("constant_val"); err != nil {
		return err
	}
	if err := c.expectInputs(0); err != nil {
		return err
	}
	c.value = c.cfg.Attribute.Float64("constant_val", 0)
	c.resetOutput()
	c.y[0].SetSignalValueAt(0, c.value)
	return nil
}

func (c *constant) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.y, true
}

// gain scales its single input.
type gain struct {
	blockBase
	k float64
}

func newGain(config BlockConfig, logger logging.Logger) (Block, error) {
	g := &gain{}
	if err := g.init("gain", config, logger, g.configureGain); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *gain) configureGain() error {
	if err := g.requireAttribute("gain"); err != nil {
		return err
	}
	if err := g.expectInputs(1); err != nil {
		return err
	}
	g.k = g.cfg.Attribute.Float64("gain", 1)
	g.resetOutput()
	return nil
}

func (g *gain) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(x) != 1 {
		return g.y, false
	}
	g.y[0].SetSignalValueAt(0, g.k*x[0].GetSignalValueAt(0))
	return g.y, true
}

// sum adds or subtracts its inputs. sum_string holds one sign per input, in depends_on order.
type sum struct {
	blockBase
	signs map[string]float64
}

func newSum(config BlockConfig, logger logging.Logger) (Block, error) {
	s := &sum{}
	if err := s.init("sum", config, logger, s.configureSum); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sum) configureSum() error {
	if err := s.requireAttribute("sum_string"); err != nil {
		return err
	}
	signs := []rune(s.cfg.Attribute.String("sum_string"))
	if err := s.expectInputs(len(signs)); err != nil {
		return err
	}
	s.signs = make(map[string]float64, len(signs))
	for i, c := range signs {
		input := s.cfg.DependsOn[i]
		if _, dup := s.signs[input]; dup {
			return errors.Errorf("sum block %s lists input %s twice", s.cfg.Name, input)
		}
		switch c {
		case '+':
			s.signs[input] = 1
		case '-':
			s.signs[input] = -1
		default:
			return errors.Errorf("expected +/- for sum block %s got %c", s.cfg.Name, c)
		}
	}
	s.resetOutput()
	return nil
}

func (s *sum) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(x) != len(s.signs) {
		return s.y, false
	}
	total := 0.0
	for _, in := range x {
		sign, ok := s.signs[in.name]
		if !ok {
			return s.y, false
		}
		total += sign * in.GetSignalValueAt(0)
	}
	s.y[0].SetSignalValueAt(0, total)
	return s.y, true
}

// limiter clamps its single input to ±limit.
type limiter struct {
	blockBase
	limit float64
}

func newLimiter(config BlockConfig, logger logging.Logger) (Block, error) {
	l := &limiter{}
	if err := l.init("limiter", config, logger, l.configureLimiter); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *limiter) configureLimiter() error {
	if err := l.requireAttribute("limit"); err != nil {
		return err
	}
	if err := l.expectInputs(1); err != nil {
		return err
	}
	l.limit = math.Abs(l.cfg.Attribute.Float64("limit", 0))
	l.resetOutput()
	return nil
}

func (l *limiter) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(x) != 1 {
		return l.y, false
	}
	l.y[0].SetSignalValueAt(0, utils.ClampSymmetric(x[0].GetSignalValueAt(0), l.limit))
	return l.y, true
}
