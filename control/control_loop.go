package control

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/logging"
)

// MaxFrequency is the highest loop rate accepted by NewLoop.
const MaxFrequency = 200.0

// Config configures a control loop.
type Config struct {
	Blocks    []BlockConfig `json:"blocks"`       // List of blocks
	Frequency float64       `json:"frequency_hz"` // Rate at which Step is expected to be called
}

// Loop is a block diagram evaluated synchronously once per Step. Endpoints are sampled first, every
// other block then runs in dependency order, and endpoints are finally handed their command.
type Loop struct {
	cfg       Config
	blocks    map[string]Block
	order     []string
	endpoints []string
	logger    logging.Logger
	dt        time.Duration
}

// NewLoop construct a new control loop for a specific endpoint.
func NewLoop(logger logging.Logger, cfg Config, m Controllable) (*Loop, error) {
	return createLoop(logger, cfg, m)
}

func createLoop(logger logging.Logger, cfg Config, m Controllable) (*Loop, error) {
	l := Loop{
		logger: logger,
		cfg:    cfg,
		blocks: make(map[string]Block),
	}
	if l.cfg.Frequency <= 0.0 || l.cfg.Frequency > MaxFrequency {
		return nil, errors.Errorf("loop frequency shouldn't be 0 or above %vHz", MaxFrequency)
	}
	l.dt = time.Duration(float64(time.Second) * (1.0 / (l.cfg.Frequency)))
	for _, bcfg := range cfg.Blocks {
		if _, dup := l.blocks[bcfg.Name]; dup {
			return nil, errors.Errorf("duplicate block name %s", bcfg.Name)
		}
		var (
			blk Block
			err error
		)
		if bcfg.Type == blockEndpoint {
			if m == nil {
				return nil, errors.Errorf("endpoint %s needs a controllable", bcfg.Name)
			}
			blk, err = newEndpoint(bcfg, logger, m)
			l.endpoints = append(l.endpoints, bcfg.Name)
		} else {
			blk, err = createBlock(bcfg, logger)
		}
		if err != nil {
			return nil, err
		}
		l.blocks[bcfg.Name] = blk
	}
	for _, bcfg := range cfg.Blocks {
		for _, dep := range bcfg.DependsOn {
			if _, ok := l.blocks[dep]; !ok {
				return nil, errors.Errorf("block %s depends on %s but it does not exist", bcfg.Name, dep)
			}
		}
	}
	order, err := l.sortBlocks()
	if err != nil {
		return nil, err
	}
	l.order = order
	return &l, nil
}

// sortBlocks orders every non-endpoint block so that each one runs after its inputs. Endpoint
// outputs are available from the start of a step so edges from endpoints are ignored.
func (l *Loop) sortBlocks() ([]string, error) {
	pending := lo.Filter(l.cfg.Blocks, func(b BlockConfig, _ int) bool {
		return b.Type != blockEndpoint
	})
	done := lo.SliceToMap(l.endpoints, func(name string) (string, bool) { return name, true })
	order := make([]string, 0, len(pending))
	for len(pending) > 0 {
		ready, blocked := lo.FilterReject(pending, func(b BlockConfig, _ int) bool {
			return lo.EveryBy(b.DependsOn, func(dep string) bool { return done[dep] })
		})
		if len(ready) == 0 {
			return nil, errors.Errorf("control loop has a dependency cycle among blocks %v",
				lo.Map(blocked, func(b BlockConfig, _ int) string { return b.Name }))
		}
		for _, b := range ready {
			order = append(order, b.Name)
			done[b.Name] = true
		}
		pending = blocked
	}
	return order, nil
}

func (l *Loop) inputsOf(ctx context.Context, name string) []*Signal {
	var sw []*Signal
	for _, dep := range l.blocks[name].Config(ctx).DependsOn {
		sw = append(sw, l.blocks[dep].Output(ctx)...)
	}
	return sw
}

// Step runs the loop once. If any endpoint fails to report its state no command is computed or
// written.
func (l *Loop) Step(ctx context.Context) error {
	var readErr error
	for _, name := range l.endpoints {
		readErr = multierr.Append(readErr, l.blocks[name].(*endpoint).readState(ctx))
	}
	if readErr != nil {
		return readErr
	}
	for _, name := range l.order {
		if _, ok := l.blocks[name].Next(ctx, l.inputsOf(ctx, name), l.dt); !ok {
			l.logger.Debugw("block kept its previous output", "block", name)
		}
	}
	var writeErr error
	for _, name := range l.endpoints {
		writeErr = multierr.Append(writeErr, l.blocks[name].(*endpoint).writeCommand(ctx, l.inputsOf(ctx, name)))
	}
	return writeErr
}

// Reset returns every block to its initial state.
func (l *Loop) Reset(ctx context.Context) error {
	var err error
	for _, name := range l.BlockNames() {
		err = multierr.Append(err, l.blocks[name].Reset(ctx))
	}
	return err
}

// OutputAt returns the Signal at the block name, error when the block doesn't exist.
func (l *Loop) OutputAt(ctx context.Context, name string) ([]*Signal, error) {
	blk, ok := l.blocks[name]
	if !ok {
		return []*Signal{}, errors.Errorf("cannot return Signals for non existing block %s", name)
	}
	return blk.Output(ctx), nil
}

// ConfigAt returns the Config at the block name, error when the block doesn't exist.
func (l *Loop) ConfigAt(ctx context.Context, name string) (BlockConfig, error) {
	blk, ok := l.blocks[name]
	if !ok {
		return BlockConfig{}, errors.Errorf("cannot return Config for non existing block %s", name)
	}
	return blk.Config(ctx), nil
}

// SetConfigAt updates the Config at the block name, error when the block doesn't exist.
func (l *Loop) SetConfigAt(ctx context.Context, name string, config BlockConfig) error {
	blk, ok := l.blocks[name]
	if !ok {
		return errors.Errorf("cannot set Config for non existing block %s", name)
	}
	return blk.UpdateConfig(ctx, config)
}

// UpdateConstantBlock sets the value of the named constant block.
func (l *Loop) UpdateConstantBlock(ctx context.Context, name string, value float64) error {
	cfg, err := l.ConfigAt(ctx, name)
	if err != nil {
		return err
	}
	if cfg.Type != blockConstant {
		return errors.Errorf("block %s is a %s, not a constant", name, cfg.Type)
	}
	attrs := make(map[string]interface{}, len(cfg.Attribute))
	for k, v := range cfg.Attribute {
		attrs[k] = v
	}
	attrs["constant_val"] = value
	cfg.Attribute = attrs
	return l.SetConfigAt(ctx, name, cfg)
}

// BlockNames returns the sorted names of the blocks in the loop.
func (l *Loop) BlockNames() []string {
	names := lo.Keys(l.blocks)
	sort.Strings(names)
	return names
}

// BlockList returns the list of blocks in a control loop error when the list is empty.
func (l *Loop) BlockList(ctx context.Context) ([]string, error) {
	if len(l.blocks) == 0 {
		return nil, errors.New("control loop has no blocks")
	}
	return l.BlockNames(), nil
}

// Frequency returns the loop's frequency.
func (l *Loop) Frequency(ctx context.Context) (float64, error) {
	return l.cfg.Frequency, nil
}

// Dt returns the time step derived from the loop's frequency.
func (l *Loop) Dt() time.Duration {
	return l.dt
}
