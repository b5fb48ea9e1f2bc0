package inject

import (
	"context"

	"github.com/ftcshooter/firecontrol/services/vision"
)

// VisionSource is an injected vision source.
type VisionSource struct {
	vision.Source
	TargetOffsetFunc func(ctx context.Context) (float64, error)
}

// TargetOffset calls the injected TargetOffset or the real version.
func (vs *VisionSource) TargetOffset(ctx context.Context) (float64, error) {
	if vs.TargetOffsetFunc == nil {
		return vs.Source.TargetOffset(ctx)
	}
	return vs.TargetOffsetFunc(ctx)
}
