// Package ports defines the interfaces that connect the session core to
// the outside world.
//
//   - [PoseSource]: samples the current pose from the motion controller
//   - [MotionBackend]: executes a move to a target pose
//   - [Confirmer]: asks an operator to approve a move
//   - [PoseRepository]: persists the last pose between runs
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) provide the simulator, the console
// confirmers and the pose file. A real controller binding plugs in the
// same way.
package ports
