package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	sectionWidth  = 61 // inner width between │ and line end
	sectionIndent = "    "
)

// Section renders a framed block of rows:
//
//	── Build ─────────────────────── 1.2s ──
//	│ image     gcr.io/proj/app:v1
//	└───────────────────────────────────────
type Section struct {
	w     io.Writer
	name  string
	color bool
}

// NewSection writes the section header and returns the section.
// A non-zero elapsed is shown at the right end of the header.
func NewSection(w io.Writer, name string, elapsed time.Duration, color bool) *Section {
	s := &Section{w: w, name: name, color: color}
	s.header(elapsed)
	return s
}

// Row writes one framed line.
func (s *Section) Row(format string, args ...any) {
	fmt.Fprintf(s.w, "%s│ %s\n", sectionIndent, fmt.Sprintf(format, args...))
}

// KV writes an aligned key/value row.
func (s *Section) KV(key, value string) {
	s.Row("%-12s%s", key, value)
}

// Separator writes a divider inside the frame.
func (s *Section) Separator() {
	s.rule("├")
}

// Close writes the section footer.
func (s *Section) Close() {
	s.rule("└")
}

func (s *Section) rule(corner string) {
	fmt.Fprintf(s.w, "%s%s%s\n", sectionIndent, corner, strings.Repeat("─", sectionWidth))
}

func (s *Section) header(elapsed time.Duration) {
	label := "── " + s.name + " "
	suffix := "──"
	if elapsed > 0 {
		suffix = " " + formatElapsed(elapsed) + " ──"
	}

	fill := sectionWidth + 4 - len(label) - len(suffix)
	if fill < 1 {
		fill = 1
	}
	line := label + strings.Repeat("─", fill) + suffix
	if s.color {
		line = "\033[2;36m" + line + colorReset
	}
	fmt.Fprintf(s.w, "\n%s%s\n", sectionIndent, line)
}

// StatusIcon returns the icon for "success", "failed" or anything else
// (skipped).
func StatusIcon(status string, color bool) string {
	icon, code := "⊘", "\033[33m"
	switch status {
	case "success":
		icon, code = "✓", "\033[32m"
	case "failed":
		icon, code = "✗", colorRed
	}
	if !color {
		return icon
	}
	return code + icon + colorReset
}

// KV is a key-value pair for ContextBlock.
type KV struct {
	Key   string
	Value string
}

// ContextBlock prints the invocation context as aligned key/value lines.
// Pairs with an empty value are skipped.
func ContextBlock(w io.Writer, kv []KV) {
	printed := false
	for _, p := range kv {
		if p.Value == "" {
			continue
		}
		if !printed {
			fmt.Fprintln(w)
			printed = true
		}
		fmt.Fprintf(w, "%s%-12s%s\n", sectionIndent, p.Key, p.Value)
	}
}

// formatElapsed formats a duration for section headers and totals.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	return fmt.Sprintf("%dm%.1fs", mins, d.Seconds()-float64(mins*60))
}

// SummaryRow writes a summary line with status icon.
func SummaryRow(w io.Writer, name, status, detail string, color bool) {
	fmt.Fprintf(w, "%s│ %-12s%s  %s\n", sectionIndent, name, StatusIcon(status, color), detail)
}

// SummaryTotal writes the final total line.
func SummaryTotal(w io.Writer, elapsed time.Duration, status string, color bool) {
	fmt.Fprintf(w, "%s│ %-12s%40s   %s\n", sectionIndent, "total", formatElapsed(elapsed), StatusIcon(status, color))
}
