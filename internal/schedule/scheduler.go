// Package schedule owns the handoff between conversion and display: a FIFO
// of converted blocks drained in bounded batches, one batch per display
// refresh, with a single provisional tail block tracked by identity.
package schedule

import (
	"context"
	"sync"
	"time"

	"streamdown/internal/block"
)

// Sink is the presentation boundary. It must accept appended batches in
// order and remove a previously-appended unit by identity; nothing more is
// required of it. Calls arrive serialized from the scheduler and must return
// promptly (the display list appends, it does not paint synchronously).
type Sink interface {
	Append(blocks []block.Block)
	Retract(id block.ID)
}

// Config bounds one drain pass. ChunkSize trades latency (smaller) against
// batching overhead (larger). A drain that takes longer than Refresh defers
// the next pass by Backoff instead of firing again immediately.
type Config struct {
	ChunkSize int
	Refresh   time.Duration
	Backoff   time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 8
	}
	if c.Refresh <= 0 {
		c.Refresh = 16 * time.Millisecond
	}
	if c.Backoff <= 0 {
		c.Backoff = 4 * c.Refresh
	}
	return c
}

// Scheduler drains converted blocks to a Sink without starving the display
// loop or dropping data under backpressure.
type Scheduler struct {
	cfg  Config
	sink Sink

	mu   sync.Mutex
	cond *sync.Cond

	pending      []block.Block
	materialized []block.Block
	provisional  block.ID // zero when no provisional block is materialized

	draining bool
	overrun  bool

	renderedUnits int

	wake chan struct{}
}

// New creates a scheduler for the given sink.
func New(sink Sink, cfg Config) *Scheduler {
	s := &Scheduler{
		cfg:  cfg.withDefaults(),
		sink: sink,
		wake: make(chan struct{}, 1),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enqueue appends a converted batch to the pending queue and wakes the drain
// loop. A provisional block still waiting in the queue is superseded
// wholesale; a provisional block already materialized is retracted as soon
// as finalized content arrives behind it.
func (s *Scheduler) Enqueue(batch []block.Block) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	if n := len(s.pending); n > 0 && s.pending[n-1].Provisional() {
		s.pending = s.pending[:n-1]
	}
	if !batch[0].Provisional() && !s.provisional.IsZero() {
		s.retractLocked(s.provisional)
	}
	s.pending = append(s.pending, batch...)
	s.cond.Broadcast()
	s.mu.Unlock()
	s.Wake()
}

// Drain runs one bounded materialization pass: up to ChunkSize blocks leave
// the queue and reach the sink as a single atomic batch. Single-flight; a
// drain already in progress makes the call a no-op. Returns whether blocks
// remain queued.
func (s *Scheduler) Drain() (more bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining || len(s.pending) == 0 {
		return len(s.pending) > 0
	}
	s.draining = true

	take := min(s.cfg.ChunkSize, len(s.pending))
	batch := make([]block.Block, take)
	copy(batch, s.pending)
	s.pending = s.pending[take:]

	start := time.Now()
	if batch[0].Provisional() && !s.provisional.IsZero() {
		// A replacement provisional supersedes the displayed one.
		s.retractLocked(s.provisional)
	}
	s.sink.Append(batch)
	s.materialized = append(s.materialized, batch...)
	if last := batch[len(batch)-1]; last.Provisional() {
		s.provisional = last.ID
	}
	s.overrun = time.Since(start) > s.cfg.Refresh

	s.draining = false
	s.cond.Broadcast()
	return len(s.pending) > 0
}

// Run drives drains at display-refresh cadence until ctx is canceled. A wake
// triggers an immediate pass; while blocks remain, passes are paced one
// Refresh apart, or by Backoff after an overrun.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.cfg.Refresh)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for {
			if !s.Drain() {
				break
			}
			delay := s.cfg.Refresh
			if s.Overrun() {
				delay = s.cfg.Backoff
			}
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}

// Wake requests a drain if none is pending. Coalescing: extra wakes while
// one is buffered are dropped.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Clear cancels scheduled work, empties both queues and resets the
// provisional marker. Safe at any time; stale wakes find an empty queue.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.materialized = nil
	s.provisional = block.ID{}
	s.overrun = false
	if c, ok := s.sink.(interface{ Clear() }); ok {
		c.Clear()
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	select {
	case <-s.wake:
	default:
	}
}

// WaitIdle blocks until the pending queue is empty and no drain is in
// flight, or ctx is canceled.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cond.Broadcast)
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) > 0 || s.draining {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
	return nil
}

// retractLocked removes a materialized block by identity, newest first since
// retraction always targets the provisional tail.
func (s *Scheduler) retractLocked(id block.ID) {
	for i := len(s.materialized) - 1; i >= 0; i-- {
		if s.materialized[i].ID == id {
			s.materialized = append(s.materialized[:i], s.materialized[i+1:]...)
			break
		}
	}
	s.sink.Retract(id)
	if s.provisional == id {
		s.provisional = block.ID{}
	}
}

// QueueDepth returns the number of blocks awaiting materialization.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// MaterializedCount returns the number of blocks handed to the sink and not
// retracted.
func (s *Scheduler) MaterializedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.materialized)
}

// ProvisionalID returns the identity of the materialized provisional block,
// zero when none.
func (s *Scheduler) ProvisionalID() block.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provisional
}

// Overrun reports whether the last drain exceeded the refresh budget.
func (s *Scheduler) Overrun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrun
}

// SetRenderedUnits records the caller-supplied rendered-unit count exposed
// through stats. Observational only.
func (s *Scheduler) SetRenderedUnits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderedUnits = n
}

// RenderedUnits returns the last caller-supplied rendered-unit count.
func (s *Scheduler) RenderedUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderedUnits
}
