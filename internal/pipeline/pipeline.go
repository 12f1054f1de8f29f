// Package pipeline is the producer-facing facade: append raw chunks, get
// materialized blocks. It owns the segmenter, serializes conversion dispatch
// (one outstanding batch, spans backlog in order) and keeps ingestion
// decoupled from materialization so a stalled conversion never blocks
// appends.
package pipeline

import (
	"context"
	"strings"
	"sync"

	"streamdown/internal/block"
	"streamdown/internal/convert"
	"streamdown/internal/schedule"
	"streamdown/internal/segment"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithoutProvisional disables provisional tail blocks. Flowing sinks that
// print to scrollback cannot retract a unit once written.
func WithoutProvisional() Option {
	return func(p *Pipeline) { p.provisional = false }
}

// Pipeline wires Segmenter -> Converter -> Scheduler.
type Pipeline struct {
	conv  convert.Converter
	sched *schedule.Scheduler

	mu   sync.Mutex
	cond *sync.Cond

	seg       *segment.Segmenter
	backlog   []string
	tailDirty bool
	lastProv  convert.Request
	inflight  bool
	gen       uint64

	nextSeq     uint64
	nextProvSeq uint64

	provisional bool
}

// New creates a pipeline feeding converted blocks into sched.
func New(conv convert.Converter, sched *schedule.Scheduler, opts ...Option) *Pipeline {
	p := &Pipeline{
		conv:        conv,
		sched:       sched,
		seg:         segment.NewSegmenter(),
		provisional: true,
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Append ingests a raw chunk. It returns once the chunk is segmented and any
// completed spans are queued for conversion; it never waits on conversion or
// materialization.
func (p *Pipeline) Append(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	spans := p.seg.Append(text)
	p.backlog = append(p.backlog, spans...)
	if p.provisional {
		p.tailDirty = true
	}
	p.dispatchLocked()
}

// Finish force-flushes the remaining buffer and blocks until every span is
// segmented, converted and materialized, or ctx is canceled. A Clear racing
// a Finish wins: Finish returns without waiting for discarded work.
func (p *Pipeline) Finish(ctx context.Context) error {
	p.mu.Lock()
	spans := p.seg.Finish()
	p.backlog = append(p.backlog, spans...)
	p.tailDirty = false
	p.lastProv = convert.Request{}
	gen := p.gen
	p.dispatchLocked()

	stop := context.AfterFunc(ctx, p.cond.Broadcast)
	for (len(p.backlog) > 0 || p.inflight) && gen == p.gen {
		if err := ctx.Err(); err != nil {
			stop()
			p.mu.Unlock()
			return err
		}
		p.cond.Wait()
	}
	stop()
	stale := gen != p.gen
	p.mu.Unlock()

	if stale {
		return nil
	}
	p.sched.Wake()
	return p.sched.WaitIdle(ctx)
}

// Clear synchronously discards the buffer and all queued and materialized
// downstream state. Idempotent; conversion results landing afterwards are
// discarded by the generation check.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	p.gen++
	p.seg.Clear()
	p.backlog = nil
	p.tailDirty = false
	p.lastProv = convert.Request{}
	p.cond.Broadcast()
	p.mu.Unlock()
	p.sched.Clear()
}

// Stats returns a point-in-time observability snapshot.
func (p *Pipeline) Stats() block.Stats {
	p.mu.Lock()
	buffered := p.seg.Len()
	p.mu.Unlock()
	return block.Stats{
		BufferedChars:      buffered,
		QueuedBlocks:       p.sched.QueueDepth(),
		MaterializedBlocks: p.sched.MaterializedCount(),
		RenderedUnits:      p.sched.RenderedUnits(),
	}
}

// dispatchLocked sends the backlog (plus a provisional tail entry when the
// tail changed) to the converter. At most one conversion batch is
// outstanding; spans arriving meanwhile wait their turn in order.
func (p *Pipeline) dispatchLocked() {
	if p.inflight || (len(p.backlog) == 0 && !p.tailDirty) {
		return
	}

	spans := p.backlog
	p.backlog = nil

	// Finalized spans retract the displayed provisional, so an identical
	// tail recurring afterwards must redisplay rather than dedupe against
	// the dispatch before the boundary.
	if len(spans) > 0 {
		p.lastProv = convert.Request{}
	}

	var provReq convert.Request
	hasProv := false
	if p.tailDirty {
		p.tailDirty = false
		if req := provisionalRequest(p.seg.Tail()); req.RawText != "" && req != p.lastProv {
			provReq = req
			p.lastProv = req
			hasProv = true
		}
	}
	if len(spans) == 0 && !hasProv {
		return
	}

	reqs := make([]convert.Request, 0, len(spans)+1)
	for _, s := range spans {
		reqs = append(reqs, convert.Request{RawText: s})
	}
	if hasProv {
		reqs = append(reqs, provReq)
	}

	// IDs are assigned at dispatch; serialized dispatch keeps them in
	// arrival order.
	ids := make([]block.ID, len(spans))
	for i := range spans {
		p.nextSeq++
		ids[i] = block.ID{Tag: block.TagFinalized, Seq: p.nextSeq}
	}
	var provID block.ID
	if hasProv {
		p.nextProvSeq++
		provID = block.ID{Tag: block.TagProvisional, Seq: p.nextProvSeq}
	}

	gen := p.gen
	p.inflight = true

	go func() {
		results := p.conv.Convert(context.Background(), reqs)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.inflight = false
		p.cond.Broadcast()
		if gen != p.gen || len(results) != len(reqs) {
			// Cleared while converting; discard silently.
			return
		}

		batch := make([]block.Block, 0, len(results))
		for i, res := range results {
			b := block.Block{
				Kind:         res.Kind,
				Markup:       res.Markup,
				Language:     res.Language,
				HeadingLevel: res.HeadingLevel,
			}
			if hasProv && i == len(results)-1 {
				b.ID = provID
				b.RawText = provReq.RawText
			} else {
				b.ID = ids[i]
				b.RawText = spans[i]
			}
			batch = append(batch, b)
		}
		p.sched.Enqueue(batch)
		p.dispatchLocked()
	}()
}

// provisionalRequest derives the renderable part of the unfinished tail. An
// open fence is shown verbatim (highlighting half a code block is unsafe);
// prose is cut at the last point free of unclosed inline syntax.
func provisionalRequest(tail string) convert.Request {
	if strings.TrimSpace(tail) == "" {
		return convert.Request{}
	}
	if lang, ok := segment.OpensFence(tail); ok {
		return convert.Request{RawText: tail, Verbatim: true, Language: lang}
	}
	safe := tail[:segment.SafePoint(tail)]
	if strings.TrimSpace(safe) == "" {
		return convert.Request{}
	}
	return convert.Request{RawText: safe}
}
