// Package control implements block-diagram feedback controllers and a small Kalman filter.
package control

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// BlockType is the type of a control block.
type BlockType string

const (
	blockEndpoint             BlockType = "endpoint"
	blockFilter               BlockType = "filter"
	blockPID                  BlockType = "PID"
	blockGain                 BlockType = "gain"
	blockSum                  BlockType = "sum"
	blockConstant             BlockType = "constant"
	blockFeedforward          BlockType = "feedforward"
	blockFrictionCompensation BlockType = "friction_compensation"
	blockLimiter              BlockType = "limiter"
)

// BlockConfig configuration of a given block.
type BlockConfig struct {
	Name      string             `json:"name"`       // Control Block name
	Type      BlockType          `json:"type"`       // Control Block type
	Attribute utils.AttributeMap `json:"attributes"` // Internal block configuration
	DependsOn []string           `json:"depends_on"` // List of blocks needed for calling Next
}

// Block interface for a control block.
type Block interface {
	// Reset will reset the control block to initial state. Returns an error on failure
	Reset(ctx context.Context) error

	// Next calculate the next output. Takes an array of signals and a delta time, returns true and
	// the output value on success, false otherwise.
	Next(ctx context.Context, x []*Signal, dt time.Duration) ([]*Signal, bool)

	// UpdateConfig update the configuration of a pre-existing control block returns an error on failure
	UpdateConfig(ctx context.Context, config BlockConfig) error

	// Output returns the most recent valid value, useful for block aggregating signals
	Output(ctx context.Context) []*Signal

	// Config returns the underlying config for a Block
	Config(ctx context.Context) BlockConfig
}

func createBlock(cfg BlockConfig, logger logging.Logger) (Block, error) {
	t := cfg.Type
	switch t {
	case blockEndpoint:
		return newEndpoint(cfg, logger, nil)
	case blockSum:
		return newSum(cfg, logger)
	case blockGain:
		return newGain(cfg, logger)
	case blockPID:
		return newPID(cfg, logger)
	case blockFilter:
		return newFilter(cfg, logger)
	case blockConstant:
		return newConstant(cfg, logger)
	case blockFeedforward:
		return newFeedforward(cfg, logger)
	case blockFrictionCompensation:
		return newFrictionCompensation(cfg, logger)
	case blockLimiter:
		return newLimiter(cfg, logger)
	}
	return nil, errors.Errorf("unsupported block type %s", t)
}
