// Package convert maps raw span text to sanitized HTML markup plus block
// metadata. Goldmark parses and renders, bluemonday sanitizes, chroma
// highlights fenced code. Conversion is order-preserving and a single bad
// entry degrades to escaped verbatim text instead of failing its batch.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"streamdown/internal/block"
)

// Request is one raw span awaiting conversion. Verbatim requests (an open
// code fence shown provisionally) skip markdown rendering entirely.
type Request struct {
	RawText  string
	Verbatim bool
	Language string // fence info for verbatim requests
}

// Result carries the sanitized markup and classification for one request.
// Fallback is set when conversion failed and the markup is escaped verbatim
// text instead.
type Result struct {
	Markup       string
	Kind         block.Kind
	Language     string
	HeadingLevel int
	Fallback     bool
}

// Converter converts an ordered batch of raw spans. Implementations must
// return exactly one result per request, in order, and must not fail the
// batch for a single bad entry. Calls may take arbitrarily long; callers
// treat every call as asynchronous.
type Converter interface {
	Convert(ctx context.Context, reqs []Request) []Result
}

var classAttr = regexp.MustCompile(`^[a-zA-Z0-9 \-_]+$`)

// Goldmark is the production Converter.
type Goldmark struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewGoldmark builds a converter with GitHub-flavored tables, UGC-grade
// sanitation and class-based chroma highlighting.
func NewGoldmark() *Goldmark {
	policy := bluemonday.UGCPolicy()
	policy.AllowTables()
	policy.AllowAttrs("class").Matching(classAttr).OnElements("pre", "code", "span", "div")

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.NewTable(
					extension.WithTableCellAlignMethod(extension.TableCellAlignAttribute),
				),
				extension.Strikethrough,
			),
		),
		policy:    policy,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     style,
	}
}

// Convert implements Converter. Context cancellation degrades the remaining
// entries to their fallback form; it never shortens the result slice.
func (g *Goldmark) Convert(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		if ctx.Err() != nil {
			results[i] = fallback(req)
			continue
		}
		results[i] = g.convertOne(req)
	}
	return results
}

func (g *Goldmark) convertOne(req Request) Result {
	if req.Verbatim {
		res := fallback(req)
		res.Kind = block.KindCode
		res.Language = req.Language
		res.Fallback = false // verbatim by request, not by failure
		return res
	}

	res, err := g.render(req.RawText)
	if err != nil {
		return fallback(req)
	}
	return res
}

func (g *Goldmark) render(raw string) (Result, error) {
	src := []byte(raw)
	doc := g.md.Parser().Parse(text.NewReader(src))

	res := Result{Kind: block.KindParagraph}
	first := doc.FirstChild()
	switch n := first.(type) {
	case *ast.Heading:
		res.Kind = block.KindHeading
		res.HeadingLevel = n.Level
	case *ast.FencedCodeBlock:
		res.Kind = block.KindCode
		res.Language = string(n.Language(src))
		markup, err := g.highlight(codeText(n, src), res.Language)
		if err == nil {
			res.Markup = g.policy.Sanitize(markup)
			return res, nil
		}
		// Fall through to the plain goldmark rendering.
	case *ast.CodeBlock:
		res.Kind = block.KindCode
	case *ast.Blockquote:
		res.Kind = block.KindBlockquote
	case *ast.List:
		res.Kind = block.KindList
	case *ast.ThematicBreak:
		res.Kind = block.KindRule
	case *east.Table:
		res.Kind = block.KindTable
	case *ast.HTMLBlock:
		res.Kind = block.KindRawHTML
	}

	var buf bytes.Buffer
	if err := g.md.Renderer().Render(&buf, src, doc); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	res.Markup = g.policy.Sanitize(buf.String())
	return res, nil
}

// highlight runs the fenced code body through chroma's class-based HTML
// formatter.
func (g *Goldmark) highlight(code, lang string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise code block: %w", err)
	}
	var buf bytes.Buffer
	if err := g.formatter.Format(&buf, g.style, iterator); err != nil {
		return "", fmt.Errorf("format code block: %w", err)
	}
	return buf.String(), nil
}

func codeText(n *ast.FencedCodeBlock, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

// fallback renders a request as safely-escaped verbatim text.
func fallback(req Request) Result {
	return Result{
		Markup:   "<pre>" + html.EscapeString(req.RawText) + "</pre>",
		Kind:     block.KindParagraph,
		Fallback: true,
	}
}
