// Package domain contains the core types of posebridge: the six-scalar
// [Pose], the line wire format spoken on both channels, and the error
// taxonomy shared by the channel, worker and session layers.
//
// This package has no dependencies on infrastructure. All types are plain
// values that can be copied across goroutines.
package domain
