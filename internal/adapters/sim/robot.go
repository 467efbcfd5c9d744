// Package sim provides a simulated motion controller. It stands in for a
// real arm when developing or testing clients against posebridge.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bft-labs/posebridge/internal/domain"
	"github.com/bft-labs/posebridge/internal/ports"
	"github.com/bft-labs/posebridge/pkg/log"
)

// step is the interpolation interval of a timed move.
const step = 10 * time.Millisecond

// Config configures a Robot.
type Config struct {
	// Reach is the maximum distance of a target translation from the base
	// origin. Zero disables the check.
	Reach float64

	// MoveDuration is how long every move takes. The pose is interpolated
	// linearly while moving. Zero moves instantly.
	MoveDuration time.Duration

	// Home is the initial pose when nothing was restored.
	Home domain.Pose
}

// Robot is an in-memory MotionBackend. It is safe for concurrent use. Moves
// are serialized.
type Robot struct {
	cfg    Config
	repo   ports.PoseRepository
	logger log.Logger

	mu   sync.RWMutex
	pose domain.Pose

	moveMu sync.Mutex
}

// Option configures a Robot.
type Option func(*Robot)

// WithRepository persists the pose after every move.
func WithRepository(repo ports.PoseRepository) Option {
	return func(r *Robot) { r.repo = repo }
}

// WithLogger sets the robot's logger.
func WithLogger(l log.Logger) Option {
	return func(r *Robot) { r.logger = l }
}

// New creates a robot at cfg.Home.
func New(cfg Config, opts ...Option) *Robot {
	r := &Robot{cfg: cfg, pose: cfg.Home, logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(log.String("component", "sim"))
	return r
}

// Restore loads the persisted pose, if a repository is set and a pose was
// saved.
func (r *Robot) Restore(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}
	pose, ok, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore pose: %w", err)
	}
	if !ok {
		return nil
	}
	r.setPose(pose)
	r.logger.Info("restored pose", log.String("pose", pose.String()))
	return nil
}

// CurrentPose returns the simulated pose.
func (r *Robot) CurrentPose() (domain.Pose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pose, nil
}

// ExecuteMove moves to target. Targets out of reach and moves cancelled
// through ctx fail with domain.ErrMove; a cancelled move stops where it was.
func (r *Robot) ExecuteMove(ctx context.Context, target domain.Pose) error {
	if err := r.checkReach(target); err != nil {
		return err
	}

	r.moveMu.Lock()
	defer r.moveMu.Unlock()

	if err := r.travel(ctx, target); err != nil {
		return err
	}

	if r.repo != nil {
		if err := r.repo.Save(ctx, target); err != nil {
			r.logger.Warn("failed to persist pose", log.Err(err))
		}
	}
	return nil
}

func (r *Robot) checkReach(target domain.Pose) error {
	if r.cfg.Reach <= 0 {
		return nil
	}
	d := math.Sqrt(target.X*target.X + target.Y*target.Y + target.Z*target.Z)
	if d > r.cfg.Reach {
		return fmt.Errorf("%w: target %.1f from base exceeds reach %.1f", domain.ErrMove, d, r.cfg.Reach)
	}
	return nil
}

func (r *Robot) travel(ctx context.Context, target domain.Pose) error {
	if r.cfg.MoveDuration <= 0 {
		r.setPose(target)
		return nil
	}

	from, _ := r.CurrentPose()
	start := time.Now()
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: interrupted: %w", domain.ErrMove, ctx.Err())
		case now := <-ticker.C:
			t := float64(now.Sub(start)) / float64(r.cfg.MoveDuration)
			if t >= 1 {
				r.setPose(target)
				return nil
			}
			r.setPose(lerp(from, target, t))
		}
	}
}

func (r *Robot) setPose(p domain.Pose) {
	r.mu.Lock()
	r.pose = p
	r.mu.Unlock()
}

func lerp(a, b domain.Pose, t float64) domain.Pose {
	mix := func(x, y float64) float64 { return x + (y-x)*t }
	return domain.Pose{
		X: mix(a.X, b.X), Y: mix(a.Y, b.Y), Z: mix(a.Z, b.Z),
		Alpha: mix(a.Alpha, b.Alpha), Beta: mix(a.Beta, b.Beta), Gamma: mix(a.Gamma, b.Gamma),
	}
}
