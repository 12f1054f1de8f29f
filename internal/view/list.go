package view

import (
	"fmt"
	"strings"
	"sync"

	"streamdown/internal/block"
)

// RenderFunc turns one block into styled terminal output at a given width.
type RenderFunc func(b block.Block, width int) string

// List is the windowed display list. It satisfies schedule.Sink: the
// scheduler appends materialized batches and retracts the provisional block
// by identity. Rendering is lazy; only blocks inside the visible window are
// rendered, everything else contributes an estimated height.
type List struct {
	mu       sync.Mutex
	width    int
	blocks   []block.Block
	render   RenderFunc
	cache    *renderCache
	onChange func()
}

// NewList creates a list rendering at the given width.
func NewList(width int, render RenderFunc) *List {
	return &List{
		width:  width,
		render: render,
		cache:  newRenderCache(200),
	}
}

// OnChange registers a callback fired after every append, retract or clear.
// Used by the display loop to request a repaint; must not call back into the
// list.
func (l *List) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Append adds a materialized batch in order.
func (l *List) Append(blocks []block.Block) {
	l.mu.Lock()
	l.blocks = append(l.blocks, blocks...)
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Retract removes a single previously-appended block by identity. The
// scheduler uses it to withdraw a superseded provisional block, so the scan
// runs newest-first.
func (l *List) Retract(id block.ID) {
	l.mu.Lock()
	for i := len(l.blocks) - 1; i >= 0; i-- {
		if l.blocks[i].ID == id {
			l.blocks = append(l.blocks[:i], l.blocks[i+1:]...)
			l.cache.remove(cacheKey(id, l.width))
			break
		}
	}
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Clear empties the list.
func (l *List) Clear() {
	l.mu.Lock()
	l.blocks = nil
	l.cache.invalidateAll()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Len returns the number of blocks currently displayed.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// Blocks returns a copy of the displayed blocks, oldest first.
func (l *List) Blocks() []block.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]block.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Resize updates the render width. Width changes invalidate every cached
// render.
func (l *List) Resize(width int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if width == l.width {
		return
	}
	l.width = width
	l.cache.invalidateAll()
}

// Visible renders the window of blocks filling height lines, scrolled up by
// scrollOffset lines from the bottom.
func (l *List) Visible(height, scrollOffset int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.blocks) == 0 || height <= 0 {
		return ""
	}

	start, end := l.visibleRangeLocked(height, scrollOffset)

	var b strings.Builder
	for i := start; i < end; i++ {
		r := l.renderedLocked(i)
		b.WriteString(r.content)
		if !strings.HasSuffix(r.content, "\n") {
			b.WriteByte('\n')
		}
	}
	return trimWindow(b.String(), height, scrollOffset)
}

// visibleRangeLocked walks backwards from the scroll anchor accumulating
// heights until the viewport is filled, with a small overscan so a partially
// visible block still renders.
func (l *List) visibleRangeLocked(height, scrollOffset int) (int, int) {
	end := len(l.blocks)
	budget := height + scrollOffset + overscanLines
	start := end
	acc := 0
	for i := end - 1; i >= 0 && acc < budget; i-- {
		acc += l.heightLocked(i)
		start = i
	}
	return start, end
}

const overscanLines = 10

// heightLocked returns the cached render height, or an estimate for blocks
// never rendered at this width.
func (l *List) heightLocked(i int) int {
	if r, ok := l.cache.get(cacheKey(l.blocks[i].ID, l.width)); ok {
		return r.height
	}
	return estimateHeight(l.blocks[i], l.width)
}

func (l *List) renderedLocked(i int) rendered {
	key := cacheKey(l.blocks[i].ID, l.width)
	if r, ok := l.cache.get(key); ok {
		return r
	}
	content := l.render(l.blocks[i], l.width)
	r := rendered{content: content, height: strings.Count(content, "\n") + 1}
	l.cache.put(key, r)
	return r
}

// TotalHeight returns the summed (estimated or measured) height of all
// blocks, for scroll clamping.
func (l *List) TotalHeight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for i := range l.blocks {
		total += l.heightLocked(i)
	}
	return total
}

// trimWindow cuts the rendered window to exactly the requested lines,
// anchored scrollOffset lines above the bottom.
func trimWindow(s string, height, scrollOffset int) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	end := len(lines) - scrollOffset
	if end > len(lines) {
		end = len(lines)
	}
	if end < 0 {
		end = 0
	}
	start := end - height
	if start < 0 {
		start = 0
	}
	return strings.Join(lines[start:end], "\n")
}

// estimateHeight guesses how many lines a block occupies before it has been
// rendered, mirroring the renderer's wrapping behavior conservatively.
func estimateHeight(b block.Block, width int) int {
	charsPerLine := width - 4
	if charsPerLine < 20 {
		charsPerLine = 20
	}
	lines := strings.Count(b.RawText, "\n") + len(b.RawText)/charsPerLine
	if lines < 1 {
		lines = 1
	}
	switch b.Kind {
	case block.KindCode, block.KindTable:
		return lines + 2 // frame overhead
	default:
		return lines + 1
	}
}

func cacheKey(id block.ID, width int) string {
	return fmt.Sprintf("%s:%d", id, width)
}
