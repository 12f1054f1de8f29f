package view

import (
	"io"
	"strings"
	"sync"

	"streamdown/internal/block"
)

// Flow is the scrollback sink: each materialized batch renders and prints
// immediately. Printed output cannot be taken back, so pipelines feeding a
// Flow run without provisional blocks; Retract is a contract no-op.
type Flow struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	render RenderFunc
	lines  int
}

// NewFlow creates a flowing sink writing rendered blocks to w.
func NewFlow(w io.Writer, width int, render RenderFunc) *Flow {
	return &Flow{w: w, width: width, render: render}
}

// Append renders and prints the batch in order.
func (f *Flow) Append(blocks []block.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range blocks {
		out := f.render(b, f.width)
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		if _, err := io.WriteString(f.w, out); err != nil {
			return
		}
		f.lines += strings.Count(out, "\n")
	}
}

// Retract is a no-op: scrollback has no way to remove printed units.
func (f *Flow) Retract(block.ID) {}

// Lines returns the number of lines printed so far, the flow's
// rendered-unit count.
func (f *Flow) Lines() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines
}
