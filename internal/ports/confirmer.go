package ports

import "context"

// Decision is an operator's answer to a confirmation prompt.
type Decision int

const (
	Cancel Decision = iota
	Accept
)

func (d Decision) String() string {
	if d == Accept {
		return "accept"
	}
	return "cancel"
}

// Confirmer asks an operator whether a move may proceed.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (Decision, error)
}
