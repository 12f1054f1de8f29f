package segment

// Segmenter owns the stream buffer: an explicit consumed-prefix offset over
// a growable byte slice. Nothing else aliases the buffer; callers receive
// copies. Not safe for concurrent use, the pipeline serializes access.
type Segmenter struct {
	buf []byte
	off int // start of the unconsumed region

	appended int64
}

// NewSegmenter returns an empty segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Append concatenates chunk to the buffer, runs boundary detection and
// returns the completed spans in discovery order. The unconsumed remainder
// stays buffered.
func (s *Segmenter) Append(chunk string) []string {
	s.buf = append(s.buf, chunk...)
	s.appended += int64(len(chunk))

	spans, remainder := Detect(string(s.buf[s.off:]), false)
	s.off = len(s.buf) - len(remainder)
	s.compact()
	return spans
}

// Finish force-flushes the buffer: segmentation runs with the blank-line and
// sentence waits relaxed and any non-empty remainder becomes one final span.
// The buffer is empty afterwards.
func (s *Segmenter) Finish() []string {
	spans, remainder := Detect(string(s.buf[s.off:]), true)
	if remainder != "" {
		spans = append(spans, remainder)
	}
	s.buf = s.buf[:0]
	s.off = 0
	return spans
}

// Clear discards the buffer. Idempotent.
func (s *Segmenter) Clear() {
	s.buf = s.buf[:0]
	s.off = 0
	s.appended = 0
}

// Tail returns a copy of the current unconsumed remainder.
func (s *Segmenter) Tail() string {
	return string(s.buf[s.off:])
}

// Len returns the number of buffered (unconsumed) bytes.
func (s *Segmenter) Len() int {
	return len(s.buf) - s.off
}

// Appended returns the total number of bytes ever appended, for the
// character-conservation stat.
func (s *Segmenter) Appended() int64 {
	return s.appended
}

// compact drops the consumed prefix once it dominates the backing array so
// an unbounded stream does not pin every byte it ever carried.
func (s *Segmenter) compact() {
	if s.off > 4096 && s.off > len(s.buf)/2 {
		s.buf = append(s.buf[:0], s.buf[s.off:]...)
		s.off = 0
	}
}
