package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/posebridge/internal/ports"
)

func TestNewConfirmer(t *testing.T) {
	c, err := NewConfirmer(ModeAccept)
	require.NoError(t, err)
	d, err := c.Confirm(context.Background(), "move to x=1?")
	require.NoError(t, err)
	assert.Equal(t, ports.Accept, d)

	c, err = NewConfirmer(ModeReject)
	require.NoError(t, err)
	d, err = c.Confirm(context.Background(), "move to x=1?")
	require.NoError(t, err)
	assert.Equal(t, ports.Cancel, d)

	c, err = NewConfirmer(ModePrompt)
	require.NoError(t, err)
	assert.IsType(t, &PromptConfirmer{}, c)

	_, err = NewConfirmer("maybe")
	assert.Error(t, err)
}

func TestAutoConfirmer_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := AutoConfirmer{Decision: ports.Accept}.Confirm(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ports.Cancel, d)
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want ports.Decision
	}{
		{"move", ports.Accept},
		{" Move ", ports.Accept},
		{"y", ports.Accept},
		{"yes", ports.Accept},
		{"cancel", ports.Cancel},
		{"", ports.Cancel},
		{"no", ports.Cancel},
		{"moved", ports.Cancel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAnswer(tt.in), "answer %q", tt.in)
	}
}

func TestPromptConfirmer(t *testing.T) {
	var shown string
	p := &PromptConfirmer{input: func(prefix string) string {
		shown = prefix
		return "move"
	}}

	d, err := p.Confirm(context.Background(), "move to x=1?")
	require.NoError(t, err)
	assert.Equal(t, ports.Accept, d)
	assert.Equal(t, "move to x=1? ", shown)
}

func TestPromptConfirmer_ContextDone(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := &PromptConfirmer{input: func(string) string {
		<-block
		return "move"
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d, err := p.Confirm(ctx, "move?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ports.Cancel, d)
}

func TestCompleter(t *testing.T) {
	assert.Len(t, suggestions, 2)
	assert.Equal(t, "move", suggestions[0].Text)
}
