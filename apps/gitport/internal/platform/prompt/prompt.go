// Package prompt reads operator answers from the terminal.
//
// On a TTY, line editing and masked input go through readline. When stdin
// is a pipe or file, answers are read one line at a time without echo
// handling, which keeps scripted runs working.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrAborted is returned when the operator interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// Terminal asks questions on an input/output pair.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	lines       *bufio.Reader
}

// New creates a Terminal. Readline is used only when in is a terminal.
func New(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: in, out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.interactive = true
	} else {
		t.lines = bufio.NewReader(in)
	}
	return t
}

// Prompt shows message and returns the trimmed answer.
func (t *Terminal) Prompt(message string) (string, error) {
	if !t.interactive {
		return t.readLine(message)
	}
	rl, err := t.readline(message)
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()

	line, err := rl.Readline()
	return finish(line, err)
}

// PromptSecret shows message and reads an answer without echoing it.
func (t *Terminal) PromptSecret(message string) (string, error) {
	if !t.interactive {
		return t.readLine(message)
	}
	rl, err := t.readline("")
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()

	b, err := rl.ReadPassword(message)
	return finish(string(b), err)
}

func (t *Terminal) readline(message string) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          message,
		Stdin:           io.NopCloser(t.in),
		Stdout:          t.out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("init prompt: %w", err)
	}
	return rl, nil
}

func (t *Terminal) readLine(message string) (string, error) {
	if _, err := io.WriteString(t.out, message); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := t.lines.ReadString('\n')
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func finish(line string, err error) (string, error) {
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrAborted
	case errors.Is(err, io.EOF):
		return strings.TrimSpace(line), nil
	case err != nil:
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
