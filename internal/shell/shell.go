// Package shell renders the user-facing status channel: right-aligned
// action verbs followed by a detail, in the style of cargo's own output.
package shell

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// Shell writes status lines to a writer. Color is decided by the renderer
// bound to that writer, so piped output stays plain.
type Shell struct {
	w     io.Writer
	quiet bool

	status lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	note   lipgloss.Style
}

// New returns a Shell writing to w. A quiet shell drops status and note
// lines but still prints warnings and errors.
func New(w io.Writer, quiet bool) *Shell {
	r := lipgloss.NewRenderer(w)
	return &Shell{
		w:      w,
		quiet:  quiet,
		status: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		warn:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		err:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		note:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
	}
}

// Status prints "  Action detail" with the action right-aligned to twelve
// columns. Continuation lines in detail are printed as-is.
func (s *Shell) Status(action, detail string) {
	if s.quiet {
		return
	}
	s.print(s.status, fmt.Sprintf("%12s", action), detail)
}

// Warn prints a warning.
func (s *Shell) Warn(msg string) {
	s.print(s.warn, "warning:", msg)
}

// Error prints an error.
func (s *Shell) Error(msg string) {
	s.print(s.err, "error:", msg)
}

// Note prints an informational note.
func (s *Shell) Note(msg string) {
	if s.quiet {
		return
	}
	s.print(s.note, "note:", msg)
}

func (s *Shell) print(style lipgloss.Style, label, msg string) {
	msg = scrub(strings.TrimRight(msg, "\n"))
	fmt.Fprintf(s.w, "%s %s\n", style.Render(label), msg)
}

// Sanitize replaces control characters (C0, DEL and C1) with '?' in package
// names and paths written as single-line plain text.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}
		return r
	}, s)
}

// scrub is Sanitize for multi-line details such as diffs: line breaks and
// tabs survive, carriage returns are dropped.
func scrub(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return '?'
		}
		return r
	}, s)
}
