package control

import (
	"github.com/pkg/errors"

	"github.com/ftcshooter/firecontrol/utils"
)

// Names of the blocks created by SetupPIDFF.
const (
	BlockNameSetPoint    = "set_point"
	BlockNameScale       = "set_point_scale"
	BlockNameEndpoint    = "endpoint"
	BlockNameFilter      = "measurement_filter"
	BlockNameError       = "error"
	BlockNamePID         = "pid"
	BlockNameFeedforward = "feedforward"
	BlockNameCommand     = "command"
	BlockNameFriction    = "friction"
	BlockNameLimiter     = "limiter"
)

// PIDConfig is the set of gains for a PID block.
type PIDConfig struct {
	P         float64 `json:"p"`
	I         float64 `json:"i"`
	D         float64 `json:"d"`
	IntSatLim float64 `json:"int_sat_lim,omitempty"`
}

// FeedforwardConfig holds the velocity, acceleration and static gains of a feedforward block.
// Loops built by SetupPIDFF have a constant set point with no acceleration, so KA has no effect
// there. MaxVelocity bounds the velocity derived from a position set point; zero leaves it
// unbounded.
type FeedforwardConfig struct {
	KV          float64 `json:"kv"`
	KA          float64 `json:"ka"`
	KS          float64 `json:"ks"`
	MaxVelocity float64 `json:"max_velocity,omitempty"`
}

// Options describes a PID + feedforward loop built by SetupPIDFF.
type Options struct {
	Frequency float64
	PID       PIDConfig
	FF        FeedforwardConfig
	// PositionTarget makes the feedforward differentiate the set point.
	PositionTarget bool
	// MinPower and ErrorThreshold add a friction compensation block when MinPower is non-zero.
	MinPower       float64
	ErrorThreshold float64
	MaxPower       float64
	// FilterSize adds a moving average on the measurement when above 1.
	FilterSize int
	// SetPointScale converts the set point to measurement units when it is neither 0 nor 1.
	SetPointScale float64
}

// SetupPIDFF returns the loop configuration
//
//	target -> feedforward ------------------------------\
//	target - endpoint -> error -> pid -> command (+) -> [friction] -> limiter -> endpoint
//
// where target is set_point, or set_point -> set_point_scale when the set point is scaled.
// The set point starts at zero and is meant to be changed with UpdateConstantBlock.
func SetupPIDFF(opts Options) (Config, error) {
	if opts.MaxPower <= 0 {
		return Config{}, errors.Errorf("max power must be greater than zero, got %v", opts.MaxPower)
	}
	measured := BlockNameEndpoint
	target := BlockNameSetPoint
	blocks := []BlockConfig{
		{
			Name:      BlockNameSetPoint,
			Type:      blockConstant,
			Attribute: utils.AttributeMap{"constant_val": 0.0},
		},
	}
	if opts.SetPointScale != 0 && opts.SetPointScale != 1 {
		blocks = append(blocks, BlockConfig{
			Name:      BlockNameScale,
			Type:      blockGain,
			Attribute: utils.AttributeMap{"gain": opts.SetPointScale},
			DependsOn: []string{BlockNameSetPoint},
		})
		target = BlockNameScale
	}
	if opts.FilterSize > 1 {
		blocks = append(blocks, BlockConfig{
			Name: BlockNameFilter,
			Type: blockFilter,
			Attribute: utils.AttributeMap{
				"type":        string(filterFIRMovingAverage),
				"filter_size": opts.FilterSize,
			},
			DependsOn: []string{BlockNameEndpoint},
		})
		measured = BlockNameFilter
	}
	input := feedforwardInputVelocity
	if opts.PositionTarget {
		input = feedforwardInputPosition
	}
	blocks = append(blocks,
		BlockConfig{
			Name:      BlockNameError,
			Type:      blockSum,
			Attribute: utils.AttributeMap{"sum_string": "+-"},
			DependsOn: []string{target, measured},
		},
		BlockConfig{
			Name: BlockNamePID,
			Type: blockPID,
			Attribute: utils.AttributeMap{
				"kP":          opts.PID.P,
				"kI":          opts.PID.I,
				"kD":          opts.PID.D,
				"int_sat_lim": opts.PID.IntSatLim,
			},
			DependsOn: []string{BlockNameError},
		},
		BlockConfig{
			Name: BlockNameFeedforward,
			Type: blockFeedforward,
			Attribute: utils.AttributeMap{
				"kV":           opts.FF.KV,
				"kA":           opts.FF.KA,
				"kS":           opts.FF.KS,
				"max_velocity": opts.FF.MaxVelocity,
				"input":        input,
			},
			DependsOn: []string{target},
		},
		BlockConfig{
			Name:      BlockNameCommand,
			Type:      blockSum,
			Attribute: utils.AttributeMap{"sum_string": "++"},
			DependsOn: []string{BlockNamePID, BlockNameFeedforward},
		},
	)
	limited := BlockNameCommand
	if opts.MinPower != 0 {
		blocks = append(blocks, BlockConfig{
			Name: BlockNameFriction,
			Type: blockFrictionCompensation,
			Attribute: utils.AttributeMap{
				"min_power":       opts.MinPower,
				"error_threshold": opts.ErrorThreshold,
			},
			DependsOn: []string{BlockNameCommand, BlockNameError},
		})
		limited = BlockNameFriction
	}
	blocks = append(blocks,
		BlockConfig{
			Name:      BlockNameLimiter,
			Type:      blockLimiter,
			Attribute: utils.AttributeMap{"limit": opts.MaxPower},
			DependsOn: []string{limited},
		},
		BlockConfig{
			Name:      BlockNameEndpoint,
			Type:      blockEndpoint,
			DependsOn: []string{BlockNameLimiter},
		},
	)
	return Config{Blocks: blocks, Frequency: opts.Frequency}, nil
}
