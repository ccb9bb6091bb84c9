// Package console renders lumoctl's user-facing terminal output: colored
// per-row status lines and interactive prompts. Diagnostic logging stays on
// logrus; everything a human operator is meant to read goes through here.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer writes status lines to a terminal. A nil Printer is valid and
// silently discards everything, which keeps callers free of quiet-mode checks.
type Printer struct {
	out io.Writer
	in  *bufio.Reader
}

// New returns a Printer writing to stderr and prompting on stdin.
func New() *Printer {
	return &Printer{out: os.Stderr, in: bufio.NewReader(os.Stdin)}
}

// NewWithStreams is used by tests to capture output and script prompt input.
func NewWithStreams(out io.Writer, in io.Reader) *Printer {
	return &Printer{out: out, in: bufio.NewReader(in)}
}

func (p *Printer) write(s string) {
	if p == nil {
		return
	}
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Succeed(format string, args ...any) {
	p.write(successStyle.Render("✔ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Fail(format string, args ...any) {
	p.write(failStyle.Render("✖ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...any) {
	p.write(infoStyle.Render("ℹ " + fmt.Sprintf(format, args...)))
}

// Progress prints a muted in-flight status line, e.g. "3/120 : a@x.com is processing".
func (p *Printer) Progress(format string, args ...any) {
	p.write(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Ask prompts for a single line of input, re-prompting until validate accepts
// it. A nil validate accepts anything.
func (p *Printer) Ask(label string, validate func(string) error) (string, error) {
	if p == nil || p.in == nil {
		return "", fmt.Errorf("no interactive terminal available")
	}
	for {
		fmt.Fprintf(p.out, "%s ", label)
		line, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if validate == nil {
			return line, nil
		}
		if verr := validate(line); verr != nil {
			p.Fail("%v", verr)
			if err == io.EOF {
				return "", verr
			}
			continue
		}
		return line, nil
	}
}

// AskSecret prompts for a line with terminal echo disabled. It refuses to run
// without a terminal rather than silently echoing a password.
func (p *Printer) AskSecret(label string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("no interactive terminal available")
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal available for interactive secret prompt")
	}
	fmt.Fprintf(p.out, "%s ", label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
