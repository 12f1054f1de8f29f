package convert

import (
	"context"
	"strings"
	"testing"

	"streamdown/internal/block"
)

func convertOne(t *testing.T, raw string) Result {
	t.Helper()
	g := NewGoldmark()
	results := g.Convert(context.Background(), []Request{{RawText: raw}})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0]
}

func TestConvertClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind block.Kind
	}{
		{"paragraph", "Just some prose.\n", block.KindParagraph},
		{"heading", "## Section\n", block.KindHeading},
		{"code", "```go\nfunc main() {}\n```\n", block.KindCode},
		{"blockquote", "> quoted text\n", block.KindBlockquote},
		{"list", "- one\n- two\n", block.KindList},
		{"rule", "---\n", block.KindRule},
		{"table", "| a | b |\n| - | - |\n| 1 | 2 |\n", block.KindTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := convertOne(t, tt.raw)
			if res.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", res.Kind, tt.kind)
			}
			if res.Fallback {
				t.Error("unexpected fallback")
			}
			if res.Markup == "" {
				t.Error("empty markup")
			}
		})
	}
}

func TestConvertHeadingLevel(t *testing.T) {
	res := convertOne(t, "### Deep\n")
	if res.HeadingLevel != 3 {
		t.Errorf("heading level = %d, want 3", res.HeadingLevel)
	}
}

func TestConvertCodeLanguage(t *testing.T) {
	res := convertOne(t, "```python\nprint(1)\n```\n")
	if res.Language != "python" {
		t.Errorf("language = %q, want python", res.Language)
	}
	if !strings.Contains(res.Markup, "print") {
		t.Errorf("markup lost code body: %q", res.Markup)
	}
}

func TestConvertSanitizesScript(t *testing.T) {
	res := convertOne(t, "hello <script>alert(1)</script> world\n")
	if strings.Contains(res.Markup, "<script") {
		t.Fatalf("script survived sanitation: %q", res.Markup)
	}
}

func TestConvertSanitizesEventHandlers(t *testing.T) {
	res := convertOne(t, `<img src=x onerror="alert(1)">`)
	if strings.Contains(res.Markup, "onerror") {
		t.Fatalf("event handler survived sanitation: %q", res.Markup)
	}
}

func TestConvertSanitizesJavascriptHref(t *testing.T) {
	res := convertOne(t, "[click](javascript:alert(1))\n")
	if strings.Contains(res.Markup, "javascript:") {
		t.Fatalf("javascript URL survived sanitation: %q", res.Markup)
	}
}

func TestConvertTableAlignment(t *testing.T) {
	res := convertOne(t, "| a | b |\n| :- | -: |\n| 1 | 2 |\n")
	if !strings.Contains(res.Markup, "<table") {
		t.Fatalf("no table element in %q", res.Markup)
	}
	// Alignment must come through as attributes, not inline style, so the
	// sanitizer keeps it.
	if !strings.Contains(res.Markup, "align") {
		t.Errorf("alignment dropped: %q", res.Markup)
	}
}

func TestConvertStrikethrough(t *testing.T) {
	res := convertOne(t, "~~gone~~\n")
	if !strings.Contains(res.Markup, "<del>") {
		t.Errorf("strikethrough not rendered: %q", res.Markup)
	}
}

func TestConvertVerbatim(t *testing.T) {
	g := NewGoldmark()
	results := g.Convert(context.Background(), []Request{{
		RawText:  "```go\nfunc incomplete(",
		Verbatim: true,
		Language: "go",
	}})
	res := results[0]
	if res.Kind != block.KindCode {
		t.Errorf("kind = %v, want code", res.Kind)
	}
	if res.Language != "go" {
		t.Errorf("language = %q", res.Language)
	}
	if res.Fallback {
		t.Error("verbatim is not a failure")
	}
	if !strings.Contains(res.Markup, "incomplete(") {
		t.Errorf("markup lost body: %q", res.Markup)
	}
	if strings.Contains(res.Markup, "<span") {
		t.Errorf("verbatim request must not be highlighted: %q", res.Markup)
	}
}

func TestConvertOrderAndCount(t *testing.T) {
	g := NewGoldmark()
	reqs := []Request{
		{RawText: "# One\n"},
		{RawText: "two\n"},
		{RawText: "```\nthree\n```\n"},
	}
	results := g.Convert(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	wantKinds := []block.Kind{block.KindHeading, block.KindParagraph, block.KindCode}
	for i, k := range wantKinds {
		if results[i].Kind != k {
			t.Errorf("result %d kind = %v, want %v", i, results[i].Kind, k)
		}
	}
}

func TestConvertCanceledContextDegrades(t *testing.T) {
	g := NewGoldmark()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reqs := []Request{{RawText: "# One\n"}, {RawText: "two\n"}}
	results := g.Convert(ctx, reqs)
	if len(results) != len(reqs) {
		t.Fatalf("cancellation must not shorten results: %d != %d", len(results), len(reqs))
	}
	for i, res := range results {
		if !res.Fallback {
			t.Errorf("result %d should be fallback after cancel", i)
		}
		if res.Markup == "" {
			t.Errorf("result %d has empty markup", i)
		}
	}
}

func TestConvertFallbackEscapes(t *testing.T) {
	res := fallback(Request{RawText: "<b>raw & dangerous</b>"})
	if strings.Contains(res.Markup, "<b>") {
		t.Fatalf("fallback did not escape: %q", res.Markup)
	}
	if !strings.Contains(res.Markup, "&lt;b&gt;") {
		t.Errorf("fallback markup = %q", res.Markup)
	}
}
