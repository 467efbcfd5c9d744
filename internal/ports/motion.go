package ports

import (
	"context"

	"github.com/bft-labs/posebridge/internal/domain"
)

// PoseSource samples the current pose of the moving body.
// Implementations must be safe for concurrent use: the telemetry worker and
// the session controller sample from different goroutines.
type PoseSource interface {
	CurrentPose() (domain.Pose, error)
}

// MotionBackend executes moves. ExecuteMove blocks until the move finished
// or failed; failures wrap domain.ErrMove.
type MotionBackend interface {
	PoseSource
	ExecuteMove(ctx context.Context, target domain.Pose) error
}

// PoseRepository persists the last known pose across restarts.
type PoseRepository interface {
	// Load returns the saved pose. ok is false if none was saved yet.
	Load(ctx context.Context) (pose domain.Pose, ok bool, err error)
	Save(ctx context.Context, pose domain.Pose) error
}
