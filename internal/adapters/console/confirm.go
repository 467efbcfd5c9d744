// Package console provides operator confirmers for the command channel.
package console

import (
	"context"
	"fmt"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/bft-labs/posebridge/internal/ports"
)

// Modes accepted by NewConfirmer.
const (
	ModePrompt = "prompt"
	ModeAccept = "accept"
	ModeReject = "reject"
)

// NewConfirmer returns the confirmer for mode.
func NewConfirmer(mode string) (ports.Confirmer, error) {
	switch mode {
	case ModePrompt:
		return NewPromptConfirmer(), nil
	case ModeAccept:
		return AutoConfirmer{Decision: ports.Accept}, nil
	case ModeReject:
		return AutoConfirmer{Decision: ports.Cancel}, nil
	default:
		return nil, fmt.Errorf("unknown confirm mode %q", mode)
	}
}

// AutoConfirmer answers every prompt with the same decision. Used for
// unattended runs and tests.
type AutoConfirmer struct {
	Decision ports.Decision
}

func (a AutoConfirmer) Confirm(ctx context.Context, _ string) (ports.Decision, error) {
	if err := ctx.Err(); err != nil {
		return ports.Cancel, err
	}
	return a.Decision, nil
}

// PromptConfirmer asks on the terminal with an interactive prompt.
type PromptConfirmer struct {
	input func(prefix string) string
}

// NewPromptConfirmer returns a confirmer reading answers from the terminal.
func NewPromptConfirmer() *PromptConfirmer {
	return &PromptConfirmer{
		input: func(prefix string) string {
			return prompt.Input(prefix, completer)
		},
	}
}

// Confirm shows the prompt and waits for an answer. If ctx ends first the
// move is cancelled and ctx.Err() returned.
func (p *PromptConfirmer) Confirm(ctx context.Context, text string) (ports.Decision, error) {
	answer := make(chan string, 1)
	go func() {
		answer <- p.input(text + " ")
	}()

	select {
	case <-ctx.Done():
		return ports.Cancel, ctx.Err()
	case a := <-answer:
		return ParseAnswer(a), nil
	}
}

// ParseAnswer maps an operator answer to a decision. Anything that is not
// an explicit yes cancels.
func ParseAnswer(s string) ports.Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "move", "m", "yes", "y":
		return ports.Accept
	default:
		return ports.Cancel
	}
}

var suggestions = []prompt.Suggest{
	{Text: "move", Description: "execute the move"},
	{Text: "cancel", Description: "skip this command"},
}

func completer(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}
