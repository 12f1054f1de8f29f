package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"streamdown/internal/block"
	"streamdown/internal/view"
)

var (
	codeFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	langLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	cursorMark = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Render("▌")
)

// NewBlockRenderer builds the view.RenderFunc used by the display list.
// Finalized blocks render through glamour; the provisional body of an open
// code fence is framed and chroma-highlighted directly, since glamour only
// sees complete fences.
func NewBlockRenderer(theme string) view.RenderFunc {
	theme = ResolveTheme(theme)
	return func(b block.Block, width int) string {
		if b.Provisional() && b.Kind == block.KindCode {
			return renderOpenFence(b, width)
		}
		out := RenderMarkdown(b.RawText, theme, width)
		if b.Provisional() {
			out += " " + cursorMark
		}
		return out
	}
}

// renderOpenFence shows the body of a not-yet-closed fence.
func renderOpenFence(b block.Block, width int) string {
	body := fenceBody(b.RawText)
	frame := codeFrame.Width(max(width-2, 10))
	out := frame.Render(HighlightCode(body, b.Language))
	if b.Language != "" {
		out = langLabel.Render(b.Language) + "\n" + out
	}
	return out
}

// fenceBody strips the opening fence line, returning the code typed so far.
func fenceBody(raw string) string {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimRight(trimmed[i+1:], "\n")
	}
	return ""
}
