package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles decorate agent output written to terminals.
type Styles struct {
	Heading  lipgloss.Style
	ToolCall lipgloss.Style
	Error    lipgloss.Style
}

// NewStyles builds styles for w. With color disabled every style renders
// plain text.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return Styles{
		Heading:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		ToolCall: r.NewStyle().Faint(true).Foreground(lipgloss.Color("244")),
		Error:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// Lines renders each line of s with style separately so multi-line text is
// not padded to a common width.
func Lines(style lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
