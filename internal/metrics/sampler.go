// Package metrics samples frame rate and heap usage for the stats footer.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Snapshot is a point-in-time reading of the sampler.
type Snapshot struct {
	FPS       float64
	HeapBytes uint64
	Frames    uint64
	Samples   uint64
}

// Sampler counts frames and periodically reads memory stats. Frame is called
// by the display loop on every refresh; Run ticks in the background and folds
// the counts into a rolling FPS figure.
type Sampler struct {
	mu        sync.Mutex
	frames    uint64
	lastCount uint64
	fps       float64
	heap      uint64
	samples   uint64
	interval  time.Duration
}

// NewSampler creates a sampler with the given sampling interval.
// An interval of zero uses one second.
func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{interval: interval}
}

// Frame records one display refresh.
func (s *Sampler) Frame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.interval.Seconds()
	if elapsed > 0 {
		s.fps = float64(s.frames-s.lastCount) / elapsed
	}
	s.lastCount = s.frames
	s.heap = ms.HeapAlloc
	s.samples++
}

// Snapshot returns the latest reading.
func (s *Sampler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		FPS:       s.fps,
		HeapBytes: s.heap,
		Frames:    s.frames,
		Samples:   s.samples,
	}
}
