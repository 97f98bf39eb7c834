package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Colors for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"

	clearLine = "\r\033[K"
)

// DefaultWidth is used when the terminal size cannot be determined.
const DefaultWidth = 80

// Sink receives the human-readable transcript of a build or push.
//
// Text is written verbatim. Info text without a trailing newline is a
// progress line that the next write may redraw.
type Sink interface {
	Info(text string)
	Error(text string)
}

// Console is a Sink writing info text to Out and error text to Err.
type Console struct {
	Out   io.Writer
	Err   io.Writer
	Color bool

	mu        sync.Mutex
	redrawing bool
}

// NewConsole creates a console sink on stdout/stderr with color auto-detection.
func NewConsole() *Console {
	return &Console{
		Out:   os.Stdout,
		Err:   os.Stderr,
		Color: UseColor(),
	}
}

// Info implements Sink.
func (c *Console) Info(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	progress := !strings.HasSuffix(text, "\n")
	switch {
	case progress && c.Color:
		fmt.Fprint(c.Out, clearLine+text)
	case progress:
		// No cursor control without a terminal: one progress update per line.
		fmt.Fprintln(c.Out, text)
	default:
		if c.redrawing && c.Color {
			fmt.Fprint(c.Out, clearLine)
		}
		fmt.Fprint(c.Out, text)
	}
	c.redrawing = progress && c.Color
}

// Error implements Sink.
func (c *Console) Error(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.redrawing {
		fmt.Fprintln(c.Out)
		c.redrawing = false
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	fmt.Fprint(c.Err, c.colorize(text, colorRed))
}

func (c *Console) colorize(text, color string) string {
	if !c.Color {
		return text
	}
	return color + strings.TrimSuffix(text, "\n") + colorReset + "\n"
}

// Width returns the terminal width of stdout, or DefaultWidth.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// RowStatus writes a row with label, detail, and a status icon.
func RowStatus(sec *Section, label, detail, status string, color bool) {
	icon := StatusIcon(status, color)
	if detail != "" {
		sec.Row("%s — %s %s", label, detail, icon)
	} else {
		sec.Row("%s %s", label, icon)
	}
}
