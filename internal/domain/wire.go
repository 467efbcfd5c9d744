package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire format.
//
// Command line (client -> command channel):
//
//	x y z a b c\n
//
// Six decimal fields separated by single spaces. An all-zero rotation triple
// (a, b and c exactly 0) means "keep the current orientation"; a target
// orientation of exactly (0, 0, 0) cannot be expressed.
//
// Telemetry response (telemetry channel -> client):
//
//	x y z a b c \n
//
// Every field, including the last, is followed by one space. Clients depend on
// that trailing space; keep it.

// CommandFields is the number of fields in a command line.
const CommandFields = 6

// ParseCommand parses a command line into a pose. Trailing spaces and a
// carriage return are ignored. Rotation fields are returned verbatim; use
// ResolveTarget to apply the keep-orientation convention.
func ParseCommand(line string) (Pose, error) {
	line = strings.TrimRight(line, " \r\n")
	fields := strings.Split(line, " ")
	if len(fields) != CommandFields {
		return Pose{}, fmt.Errorf("%w: want %d fields, got %d in %q", ErrParse, CommandFields, len(fields), line)
	}

	var v [CommandFields]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Pose{}, fmt.Errorf("%w: field %d %q: %v", ErrParse, i+1, f, err)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Pose{}, fmt.Errorf("%w: field %d %q is not finite", ErrParse, i+1, f)
		}
		v[i] = n
	}

	return Pose{X: v[0], Y: v[1], Z: v[2], Alpha: v[3], Beta: v[4], Gamma: v[5]}, nil
}

// ResolveTarget applies the keep-orientation convention: if the commanded
// rotation is all zero, the current orientation is used instead.
func ResolveTarget(cmd Pose, current Orientation) Pose {
	if cmd.Orientation().IsZero() {
		return cmd.WithOrientation(current)
	}
	return cmd
}

// FormatPose renders p as a telemetry response line without the terminator.
func FormatPose(p Pose) string {
	var b strings.Builder
	for _, v := range [CommandFields]float64{p.X, p.Y, p.Z, p.Alpha, p.Beta, p.Gamma} {
		b.WriteString(formatScalar(v))
		b.WriteByte(' ')
	}
	return b.String()
}

// formatScalar prints the shortest exact decimal, always with a fractional
// part ("10" becomes "10.0").
func formatScalar(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
