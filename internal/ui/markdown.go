// Package ui holds terminal rendering helpers: a width-keyed glamour
// renderer cache, chroma highlighting for code shown outside glamour, and
// ANSI-aware measurement.
package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// rendererCache provides theme+width-keyed caching of glamour renderers.
// Creating a renderer is expensive; rendering happens on every repaint.
var rendererCache sync.Map // map[string]*glamour.TermRenderer

func getRenderer(theme string, width int) (*glamour.TermRenderer, error) {
	key := fmt.Sprintf("%s:%d", theme, width)
	if cached, ok := rendererCache.Load(key); ok {
		return cached.(*glamour.TermRenderer), nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	// Race-safe: a concurrent store just wins and ours is discarded.
	rendererCache.Store(key, renderer)
	return renderer, nil
}

// ResolveTheme maps the configured theme to a glamour style name, falling
// back to terminal capability detection for "auto".
func ResolveTheme(theme string) string {
	if theme != "" && theme != "auto" {
		return theme
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return "notty"
	}
	return "dark"
}

// RenderMarkdown renders markdown to styled terminal output. On error the
// original content comes back unchanged; display must never fail on bad
// input.
func RenderMarkdown(content, theme string, width int) string {
	if content == "" {
		return ""
	}
	renderer, err := getRenderer(theme, width)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(strings.TrimLeft(rendered, "\n"), "\n")
}
