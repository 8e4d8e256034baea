package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user to approve a destructive step.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Decline is a Confirmer that never approves.
var Decline = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })

// PromptConfirmer asks on Out and reads one answer line from In.
// Only "y" and "yes", in any case, approve.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer creates a PromptConfirmer, typically over stdin/stdout.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm writes prompt followed by " [y/N]: " and reads the answer.
func (p *PromptConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
