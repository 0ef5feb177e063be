// Package interactive asks the one continue/stop question of a scan run,
// either on a terminal or with a preset batch answer.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/waymap/waymap/pkg/ui"
)

// Batch answers accepted by ParseBatch.
const (
	BatchContinue = "continue"
	BatchStop     = "stop"
)

// ErrInvalidBatch indicates an unrecognised -batch value.
var ErrInvalidBatch = errors.New("interactive: batch answer must be continue or stop")

// ParseAnswer reports whether line means continue. Only "y" (any case,
// surrounding space ignored) continues; anything else stops.
func ParseAnswer(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// LinePrompter reads answers one line at a time from an input stream.
type LinePrompter struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter prompts on out and reads from in.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

type lineResult struct {
	line string
	err  error
}

// Confirm writes question and waits for one line. End of input without an
// answer counts as "no". Cancelling ctx returns its error immediately.
//
// A read blocked on a terminal cannot be interrupted; after cancellation
// the reading goroutine lingers until the next newline or process exit.
func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintln(p.out)
	fmt.Fprint(p.out, ui.Prompt(question))

	done := make(chan lineResult, 1)
	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		line, err := p.reader.ReadString('\n')
		done <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, io.EOF) {
			return false, fmt.Errorf("interactive: read answer: %w", r.err)
		}
		if errors.Is(r.err, io.EOF) {
			fmt.Fprintln(p.out)
		}
		return ParseAnswer(r.line), nil
	}
}

// Fixed answers every question with the same preset decision and echoes
// it, the way unattended runs record their choice.
type Fixed struct {
	Continue bool
	Out      io.Writer
}

// Confirm returns the preset answer.
func (f Fixed) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.Out != nil {
		answer := "n"
		if f.Continue {
			answer = "y"
		}
		fmt.Fprintln(f.Out)
		fmt.Fprintln(f.Out, ui.Prompt(question)+answer+" (batch)")
	}
	return f.Continue, nil
}

// ParseBatch maps a -batch value onto a Fixed prompter.
func ParseBatch(value string, out io.Writer) (Fixed, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case BatchContinue:
		return Fixed{Continue: true, Out: out}, nil
	case BatchStop:
		return Fixed{Continue: false, Out: out}, nil
	default:
		return Fixed{}, fmt.Errorf("%w: %q", ErrInvalidBatch, value)
	}
}
