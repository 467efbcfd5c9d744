package domain

import "fmt"

// Pose is a rigid-body sample: translation in the controller's base frame
// and rotation in radians about three axes.
type Pose struct {
	X, Y, Z            float64
	Alpha, Beta, Gamma float64
}

// Orientation is the rotation triple of a pose.
type Orientation struct {
	Alpha, Beta, Gamma float64
}

// Orientation returns the rotation part of p.
func (p Pose) Orientation() Orientation {
	return Orientation{Alpha: p.Alpha, Beta: p.Beta, Gamma: p.Gamma}
}

// WithOrientation returns p with its rotation replaced by o.
func (p Pose) WithOrientation(o Orientation) Pose {
	p.Alpha, p.Beta, p.Gamma = o.Alpha, o.Beta, o.Gamma
	return p
}

// IsZero reports whether all three angles are exactly zero.
func (o Orientation) IsZero() bool {
	return o.Alpha == 0 && o.Beta == 0 && o.Gamma == 0
}

func (p Pose) String() string {
	return fmt.Sprintf("x=%g y=%g z=%g a=%g b=%g c=%g", p.X, p.Y, p.Z, p.Alpha, p.Beta, p.Gamma)
}
