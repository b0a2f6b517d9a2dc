package modules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompt backs the `prompt` module: input/password/confirm/select, each a
// no-op when stdin is not a TTY (spec §4.5) — scripted runs in CI never
// block waiting for a human.
type Prompt struct {
	In  io.Reader
	Out io.Writer
	Fd  int // file descriptor backing In, for the TTY check
}

func NewPrompt() Prompt {
	return Prompt{In: os.Stdin, Out: os.Stderr, Fd: int(os.Stdin.Fd())}
}

func (p Prompt) isTTY() bool {
	return term.IsTerminal(p.Fd)
}

func (p Prompt) Input(label string) string {
	if !p.isTTY() {
		return ""
	}
	fmt.Fprint(p.Out, label)
	line, _ := bufio.NewReader(p.In).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (p Prompt) Password(label string) string {
	if !p.isTTY() {
		return ""
	}
	fmt.Fprint(p.Out, label)
	b, err := term.ReadPassword(p.Fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return ""
	}
	return string(b)
}

func (p Prompt) Confirm(label string) bool {
	if !p.isTTY() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(p.Input(label + " [y/N] ")))
	return answer == "y" || answer == "yes"
}

func (p Prompt) Select(label string, options ...string) string {
	if !p.isTTY() || len(options) == 0 {
		return ""
	}
	fmt.Fprintln(p.Out, label)
	for i, o := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, o)
	}
	choice := p.Input("> ")
	for i, o := range options {
		if choice == fmt.Sprint(i+1) || choice == o {
			return o
		}
	}
	return ""
}

func (p Prompt) Object() map[string]any {
	return map[string]any{
		"input":    p.Input,
		"password": p.Password,
		"confirm":  p.Confirm,
		"select":   p.Select,
	}
}
