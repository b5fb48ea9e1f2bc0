package control

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
)

// blockBase is the state shared by blocks with a single output. A block embeds it and provides
// configure, which rebuilds the block from cfg with mu held.
type blockBase struct {
	mu        sync.Mutex
	kind      string
	cfg       BlockConfig
	y         []*Signal
	logger    logging.Logger
	configure func() error
}

func (b *blockBase) init(kind string, cfg BlockConfig, logger logging.Logger, configure func() error) error {
	b.kind = kind
	b.cfg = cfg
	b.logger = logger
	b.configure = configure
	return b.configure()
}

// Reset rebuilds the block from its configuration.
func (b *blockBase) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.configure()
}

// UpdateConfig replaces the configuration and rebuilds the block.
func (b *blockBase) UpdateConfig(ctx context.Context, config BlockConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = config
	return b.configure()
}

// Output returns the last output.
func (b *blockBase) Output(ctx context.Context) []*Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.y
}

// Config returns the block configuration.
func (b *blockBase) Config(ctx context.Context) BlockConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func (b *blockBase) requireAttribute(name string) error {
	if !b.cfg.Attribute.Has(name) {
		return errors.Errorf("%s block %s doesn't have a %s field", b.kind, b.cfg.Name, name)
	}
	return nil
}

func (b *blockBase) expectInputs(n int) error {
	if len(b.cfg.DependsOn) != n {
		return errors.Errorf("invalid number of inputs for %s block %s expected %d got %d",
			b.kind, b.cfg.Name, n, len(b.cfg.DependsOn))
	}
	return nil
}

// resetOutput replaces the output with a single zero signal.
func (b *blockBase) resetOutput() {
	b.y = []*Signal{makeSignal(b.cfg.Name, b.cfg.Type)}
}
