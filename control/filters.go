package control

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
)

const filterFIRMovingAverage = "filterFIRMovingAverage"

// movingAverage is a filter block averaging the last filter_size samples of its input. Until the
// window fills it averages what it has. Reset empties the window without rereading the config.
type movingAverage struct {
	blockBase
	window []float64
	next   int
	count  int
	total  float64
}

func newFilter(config BlockConfig, logger logging.Logger) (Block, error) {
	f := &movingAverage{}
	if err := f.init("filter", config, logger, f.configureFilter); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *movingAverage) configureFilter() error {
	if err := f.requireAttribute("type"); err != nil {
		return err
	}
	if err := f.expectInputs(1); err != nil {
		return err
	}
	if kind := f.cfg.Attribute.String("type"); kind != filterFIRMovingAverage {
		return errors.Errorf("unsupported filter type %s for filter %s", kind, f.cfg.Name)
	}
	if err := f.requireAttribute("filter_size"); err != nil {
		return err
	}
	size := f.cfg.Attribute.Int("filter_size", 0)
	if size < 1 {
		return errors.Errorf("filter %s needs a filter_size of at least 1, got %d", f.cfg.Name, size)
	}
	f.window = make([]float64, size)
	f.clear()
	f.resetOutput()
	return nil
}

func (f *movingAverage) clear() {
	f.next, f.count, f.total = 0, 0, 0
}

// Reset empties the averaging window.
func (f *movingAverage) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clear()
	return nil
}

func (f *movingAverage) Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(x) != 1 {
		return f.y, false
	}
	v := x[0].GetSignalValueAt(0)
	if f.count == len(f.window) {
		f.total -= f.window[f.next]
	} else {
		f.count++
	}
	f.window[f.next] = v
	f.total += v
	f.next = (f.next + 1) % len(f.window)
	f.y[0].SetSignalValueAt(0, f.total/float64(f.count))
	return f.y, true
}
