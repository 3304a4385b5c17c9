// Package render turns captured agent output into presentable text.
//
// Clean strips terminal control sequences from raw output. A Renderer then
// presents the cleaned text on a surface: MarkdownHTML for the web form,
// Plain for terminals and pipes. Styles holds the lipgloss styles agents use
// when decorating their own output.
package render
