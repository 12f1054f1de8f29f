package segment

import (
	"math/rand"
	"strings"
	"testing"
)

// feedChunks appends input in the given chunk sizes and returns all spans
// including the finish flush.
func feedChunks(t *testing.T, input string, chunks []string) []string {
	t.Helper()
	s := NewSegmenter()
	var spans []string
	for _, c := range chunks {
		spans = append(spans, s.Append(c)...)
	}
	spans = append(spans, s.Finish()...)
	return spans
}

func randomChunks(rng *rand.Rand, input string, maxChunk int) []string {
	var chunks []string
	pos := 0
	for pos < len(input) {
		n := rng.Intn(maxChunk) + 1
		if pos+n > len(input) {
			n = len(input) - pos
		}
		chunks = append(chunks, input[pos:pos+n])
		pos += n
	}
	return chunks
}

func TestSegmenterHeadingEmitsImmediately(t *testing.T) {
	s := NewSegmenter()
	if spans := s.Append("# Tit"); len(spans) != 0 {
		t.Fatalf("incomplete heading emitted: %q", spans)
	}
	spans := s.Append("le\n")
	if len(spans) != 1 || spans[0] != "# Title\n" {
		t.Fatalf("spans = %q", spans)
	}
	if s.Len() != 0 {
		t.Errorf("buffer should be empty, has %d bytes", s.Len())
	}
}

func TestSegmenterParagraphAcrossAppends(t *testing.T) {
	s := NewSegmenter()
	if spans := s.Append("Hello "); len(spans) != 0 {
		t.Fatalf("unexpected spans: %q", spans)
	}
	spans := s.Append("world\n\nNext para")
	if len(spans) != 1 || spans[0] != "Hello world\n\n" {
		t.Fatalf("spans = %q", spans)
	}
	if s.Tail() != "Next para" {
		t.Errorf("tail = %q", s.Tail())
	}
}

func TestSegmenterUnterminatedFenceFlushesAsOneSpan(t *testing.T) {
	s := NewSegmenter()
	s.Append("```js\n")
	s.Append("let x = 1;\n")
	s.Append("let y = 2;\n")
	if s.Len() == 0 {
		t.Fatal("open fence should stay buffered")
	}
	spans := s.Finish()
	if len(spans) != 1 || spans[0] != "```js\nlet x = 1;\nlet y = 2;\n" {
		t.Fatalf("finish spans = %q", spans)
	}
	if s.Len() != 0 {
		t.Error("buffer must be empty after finish")
	}
}

func TestSegmenterFinishDoesNotSentenceSplit(t *testing.T) {
	s := NewSegmenter()
	s.Append("```\ncode. with sentences. inside\n")
	spans := s.Finish()
	if len(spans) != 1 {
		t.Fatalf("finish must flush the fence whole, got %q", spans)
	}
}

func TestSegmenterSingleCharAppends(t *testing.T) {
	input := strings.Repeat("a", 1000)
	s := NewSegmenter()
	for i := 0; i < len(input); i++ {
		if spans := s.Append(input[i : i+1]); len(spans) != 0 {
			t.Fatalf("premature span at %d: %q", i, spans)
		}
	}
	spans := s.Finish()
	if len(spans) != 1 || spans[0] != input {
		t.Fatalf("expected one span of %d bytes, got %d spans", len(input), len(spans))
	}
}

func TestSegmenterConservation(t *testing.T) {
	input := "# H\n\nPara one. Para two!\n\n```go\nf()\n```\n- a\n- b\n\ntail words"
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 30; trial++ {
		spans := feedChunks(t, input, randomChunks(rng, input, 7))
		if got := strings.Join(spans, ""); got != input {
			t.Fatalf("trial %d: conservation FAILED\ngot:  %q\nwant: %q", trial, got, input)
		}
	}
}

// Structural constructs must produce the same span sequence no matter how
// the input is chunked. Prose is excluded here: the sentence fallback may
// legitimately split a paragraph that arrives slowly.
func TestSegmenterChunkingInvariantStructural(t *testing.T) {
	inputs := []string{
		"# One\n## Two\n### Three\n",
		"```go\npackage main\n```\n```js\nlet x\n```\n",
		"| a | b |\n| - | - |\n| 1 | 2 |\n\n# After\n",
		"---\n***\n___\n",
		"Setext\n======\nMore\n------\n",
	}
	rng := rand.New(rand.NewSource(3))
	for _, input := range inputs {
		whole := feedChunks(t, input, []string{input})
		for trial := 0; trial < 20; trial++ {
			chunked := feedChunks(t, input, randomChunks(rng, input, 5))
			if strings.Join(whole, "\x00") != strings.Join(chunked, "\x00") {
				t.Fatalf("chunking changed spans for %q\nwhole:   %q\nchunked: %q", input, whole, chunked)
			}
		}
	}
}

func TestSegmenterFenceSplitAcrossAppends(t *testing.T) {
	// A fence arriving in many pieces still emits exactly one span when the
	// closing fence finally lands.
	parts := []string{"``", "`go\nfunc f()", " {}\n`", "``", "\nafter"}
	s := NewSegmenter()
	var spans []string
	for _, p := range parts {
		spans = append(spans, s.Append(p)...)
	}
	if len(spans) != 1 || spans[0] != "```go\nfunc f() {}\n```\n" {
		t.Fatalf("spans = %q", spans)
	}
	if s.Tail() != "after" {
		t.Errorf("tail = %q", s.Tail())
	}
}

func TestSegmenterClear(t *testing.T) {
	s := NewSegmenter()
	s.Append("# partial")
	s.Clear()
	if s.Len() != 0 || s.Appended() != 0 {
		t.Fatal("clear must reset buffer and counters")
	}
	// Idempotent.
	s.Clear()
	if spans := s.Finish(); len(spans) != 0 {
		t.Fatalf("finish after clear emitted %q", spans)
	}
}

func TestSegmenterAppendedCounts(t *testing.T) {
	s := NewSegmenter()
	s.Append("abc")
	s.Append("defg")
	if s.Appended() != 7 {
		t.Errorf("appended = %d, want 7", s.Appended())
	}
}

func TestSegmenterCompaction(t *testing.T) {
	// Force many consumed spans; the tail must survive compaction intact.
	s := NewSegmenter()
	for i := 0; i < 500; i++ {
		s.Append("# heading line number x\n")
	}
	s.Append("trailing tail")
	if s.Tail() != "trailing tail" {
		t.Fatalf("tail = %q after compaction", s.Tail())
	}
}
