package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/posebridge/internal/domain"
)

// poseRecord is the on-disk form of a pose.
type poseRecord struct {
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Z       float64   `json:"z"`
	Alpha   float64   `json:"alpha"`
	Beta    float64   `json:"beta"`
	Gamma   float64   `json:"gamma"`
	SavedAt time.Time `json:"saved_at"`
}

// PoseFileRepository implements ports.PoseRepository using a JSON file.
type PoseFileRepository struct {
	path string
}

// NewPoseFileRepository creates a repository backed by the file at path.
func NewPoseFileRepository(path string) *PoseFileRepository {
	return &PoseFileRepository{path: path}
}

// Load reads the saved pose. Returns ok=false and a nil error if the file
// does not exist.
func (r *PoseFileRepository) Load(ctx context.Context) (domain.Pose, bool, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Pose{}, false, nil
		}
		return domain.Pose{}, false, err
	}

	var rec poseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Pose{}, false, fmt.Errorf("decode %s: %w", r.path, err)
	}

	return domain.Pose{
		X: rec.X, Y: rec.Y, Z: rec.Z,
		Alpha: rec.Alpha, Beta: rec.Beta, Gamma: rec.Gamma,
	}, true, nil
}

// Save persists the pose atomically (write to temp file, then rename).
func (r *PoseFileRepository) Save(ctx context.Context, pose domain.Pose) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(poseRecord{
		X: pose.X, Y: pose.Y, Z: pose.Z,
		Alpha: pose.Alpha, Beta: pose.Beta, Gamma: pose.Gamma,
		SavedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Path returns the pose file path.
func (r *PoseFileRepository) Path() string {
	return r.path
}
