package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer presents cleaned response text on an output surface.
type Renderer interface {
	Render(w io.Writer, cleaned string) error
}

// Plain writes the text unchanged, terminated by a newline.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(w io.Writer, cleaned string) error {
	if !strings.HasSuffix(cleaned, "\n") {
		cleaned += "\n"
	}
	_, err := io.WriteString(w, cleaned)
	return err
}

// MarkdownHTML converts markdown (GitHub flavoured, including tables) into
// an HTML fragment. Raw HTML in the input is escaped.
type MarkdownHTML struct {
	md goldmark.Markdown
}

// NewMarkdownHTML creates a markdown to HTML renderer.
func NewMarkdownHTML() *MarkdownHTML {
	return &MarkdownHTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render implements Renderer.
func (m *MarkdownHTML) Render(w io.Writer, cleaned string) error {
	if err := m.md.Convert([]byte(cleaned), w); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

// HTML is a convenience wrapper returning the rendered fragment.
func (m *MarkdownHTML) HTML(cleaned string) (string, error) {
	var buf bytes.Buffer
	if err := m.Render(&buf, cleaned); err != nil {
		return "", err
	}
	return buf.String(), nil
}
