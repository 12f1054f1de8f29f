// Package block defines the shared data model for streamed markdown content:
// immutable finalized blocks, the single provisional tail block, and the
// observability snapshot exposed by the pipeline.
package block

import "fmt"

// Tag distinguishes finalized blocks from the provisional tail block.
// Provisional identity is a tagged variant, never an encoded ID prefix.
type Tag int

const (
	// TagFinalized marks a block whose underlying text crossed a confirmed
	// boundary. Finalized blocks never change after creation.
	TagFinalized Tag = iota

	// TagProvisional marks the placeholder block for unfinished tail
	// content. At most one provisional block is outstanding at any time;
	// it is replaced wholesale, never edited.
	TagProvisional
)

func (t Tag) String() string {
	switch t {
	case TagFinalized:
		return "finalized"
	case TagProvisional:
		return "provisional"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// Kind identifies the markdown construct a block was classified as.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindCode
	KindBlockquote
	KindList
	KindTable
	KindRule
	KindRawHTML
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindCode:
		return "code"
	case KindBlockquote:
		return "blockquote"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindRule:
		return "hr"
	case KindRawHTML:
		return "rawHtml"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ID identifies a block. Sequence numbers are monotonic within each tag
// namespace, so a provisional ID can never collide with a finalized one.
type ID struct {
	Tag Tag
	Seq uint64
}

// IsZero reports whether the ID is the zero value, used as "no block".
func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%d", id.Tag, id.Seq)
}

// Block is one unit of converted content. Finalized blocks are immutable:
// once handed to the scheduler their fields never change.
type Block struct {
	ID      ID
	Kind    Kind
	RawText string // exact consumed input, concatenation reproduces the stream

	// Markup is the converter's sanitized HTML. Terminal sinks style
	// RawText directly (glamour takes markdown, not HTML) and keep Markup
	// for HTML-emitting sinks and for tests asserting sanitation.
	Markup string

	// Set for KindCode and KindHeading respectively.
	Language     string
	HeadingLevel int
}

// Provisional reports whether the block is the provisional tail placeholder.
func (b Block) Provisional() bool {
	return b.ID.Tag == TagProvisional
}

// Stats is a point-in-time snapshot of the pipeline. Purely observational;
// producers may use QueuedBlocks to throttle, the pipeline never drops data.
type Stats struct {
	BufferedChars      int
	QueuedBlocks       int
	MaterializedBlocks int
	RenderedUnits      int
}
