// Package segment turns an accumulating text stream into an ordered sequence
// of immutable spans. Detect is the pure boundary decision; Segmenter owns
// the buffer and feeds completed spans downstream.
package segment

import "strings"

// lineKind classifies a single input line for boundary decisions.
type lineKind int

const (
	lineBlank lineKind = iota
	lineFence
	lineHeading
	lineRule
	lineList
	lineQuote
	lineTable
	lineText
)

// line is one physical line of the buffer. end includes the terminating
// newline when terminated is true.
type line struct {
	start, end int
	text       string
	terminated bool
}

// Detect partitions the longest safe prefix of buf into completed spans and
// returns the unconsumed remainder. It is a deterministic function of the
// buffer content alone.
//
// Rules, in priority order: a fenced code block completes only when its
// closing fence arrives (an unmatched opening fence buffers everything after
// it, regardless of size); a blank line completes the preceding paragraph;
// consecutive table rows complete once a blank or non-table line follows;
// heading and horizontal-rule lines complete the instant their newline
// arrives; as a fallback, trailing prose ending in terminal punctuation
// followed by whitespace is completed early so the first paint does not wait
// for a whole paragraph.
//
// Concatenating the returned spans with the remainder reproduces buf exactly:
// delimiter whitespace is attached to the span it terminates.
//
// relaxed disables the sentence-completion fallback; it is used by finish,
// where the entire remainder is flushed as one final span anyway.
func Detect(buf string, relaxed bool) (spans []string, remainder string) {
	if strings.TrimSpace(buf) == "" {
		return nil, buf
	}

	lines := splitLines(buf)
	pos := 0
	i := 0

	// emit closes the span ending at lines[endIdx], swallowing any blank
	// lines that immediately follow so the delimiter stays with the span
	// it terminated.
	emit := func(endIdx int) {
		end := lines[endIdx].end
		j := endIdx + 1
		for j < len(lines) && lines[j].terminated && isBlank(lines[j].text) {
			end = lines[j].end
			j++
		}
		spans = append(spans, buf[pos:end])
		pos = end
		i = j
	}

	// sentenceTail applies the fallback completion to the open tail.
	sentenceTail := func() {
		if relaxed {
			return
		}
		if cut := sentenceSplit(buf[pos:]); cut > 0 {
			spans = append(spans, buf[pos:pos+cut])
			pos += cut
		}
	}

scan:
	for i < len(lines) {
		l := lines[i]
		if !l.terminated {
			// A partial final line: only the sentence fallback can
			// complete plain prose this early.
			if classifyLine(l.text) == lineText {
				sentenceTail()
			}
			break scan
		}

		switch classifyLine(l.text) {
		case lineBlank:
			// Leading blank lines stay pending and join the next span.
			i++

		case lineFence:
			ch, length := parseFence(l.text)
			close := -1
			for j := i + 1; j < len(lines); j++ {
				if lines[j].terminated && isClosingFence(lines[j].text, ch, length) {
					close = j
					break
				}
			}
			if close < 0 {
				// Unmatched opening fence: everything from the fence
				// onward stays buffered until it closes or the stream
				// finishes. Highlighting half a code block is unsafe.
				break scan
			}
			emit(close)

		case lineHeading, lineRule:
			emit(i)

		case lineTable:
			j := i
			for j+1 < len(lines) && lines[j+1].terminated && classifyLine(lines[j+1].text) == lineTable {
				j++
			}
			if j+1 < len(lines) && lines[j+1].terminated {
				// A blank or non-table line confirms the table ended.
				emit(j)
				continue scan
			}
			// The trailing row might be a continuation; wait.
			break scan

		default:
			// Paragraph-shaped content. List items and blockquote lines
			// accumulate here too; a blank line or a higher-priority
			// construct closes the span.
			j := i
			for {
				if j+1 >= len(lines) || !lines[j+1].terminated {
					if firstLineIsPlain(lines[i].text) {
						sentenceTail()
					}
					break scan
				}
				next := lines[j+1]
				if isBlank(next.text) {
					emit(j)
					continue scan
				}
				if isSetextUnderline(next.text) {
					// The underline turns the paragraph into a heading.
					emit(j + 1)
					continue scan
				}
				switch classifyLine(next.text) {
				case lineFence, lineHeading, lineRule, lineTable:
					emit(j)
					continue scan
				}
				j++
			}
		}
	}

	return spans, buf[pos:]
}

func splitLines(s string) []line {
	var ls []line
	start := 0
	for idx := 0; idx < len(s); idx++ {
		if s[idx] == '\n' {
			text := strings.TrimSuffix(s[start:idx], "\r")
			ls = append(ls, line{start: start, end: idx + 1, text: text, terminated: true})
			start = idx + 1
		}
	}
	if start < len(s) {
		ls = append(ls, line{start: start, end: len(s), text: s[start:], terminated: false})
	}
	return ls
}

// classifyLine determines what construct a line starts. List and blockquote
// markers take precedence over the table heuristic so "- a | b" stays a list
// item.
func classifyLine(text string) lineKind {
	if isBlank(text) {
		return lineBlank
	}
	trimmed := strings.TrimLeft(text, " \t")
	switch {
	case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
		return lineFence
	case isATXHeading(trimmed):
		return lineHeading
	case isThematicBreak(trimmed):
		return lineRule
	case isListMarker(trimmed):
		return lineList
	case trimmed[0] == '>':
		return lineQuote
	case strings.Contains(trimmed, "|"):
		return lineTable
	default:
		return lineText
	}
}

func firstLineIsPlain(text string) bool {
	return classifyLine(text) == lineText
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// isATXHeading reports whether the line is a # heading: up to six hashes
// followed by whitespace or nothing.
func isATXHeading(trimmed string) bool {
	if len(trimmed) == 0 || trimmed[0] != '#' {
		return false
	}
	hashes := 0
	for hashes < len(trimmed) && trimmed[hashes] == '#' {
		hashes++
	}
	if hashes > 6 {
		return false
	}
	return hashes == len(trimmed) || trimmed[hashes] == ' ' || trimmed[hashes] == '\t'
}

// isThematicBreak reports whether the line is ---, *** or ___ with at least
// three marker characters and only whitespace otherwise.
func isThematicBreak(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	marker := trimmed[0]
	if marker != '-' && marker != '*' && marker != '_' {
		return false
	}
	count := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case marker:
			count++
		case ' ', '\t':
		default:
			return false
		}
	}
	return count >= 3
}

func isListMarker(trimmed string) bool {
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '-' || trimmed[0] == '*' || trimmed[0] == '+' {
		return len(trimmed) > 1 && (trimmed[1] == ' ' || trimmed[1] == '\t')
	}
	i := 0
	for i < len(trimmed) && i < 9 && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return false
	}
	if trimmed[i] != '.' && trimmed[i] != ')' {
		return false
	}
	return i+1 == len(trimmed) || trimmed[i+1] == ' ' || trimmed[i+1] == '\t'
}

// isSetextUnderline reports whether the line underlines the preceding
// paragraph as a heading: all = or all -.
func isSetextUnderline(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) == 0 {
		return false
	}
	marker := trimmed[0]
	if marker != '=' && marker != '-' {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != marker {
			return false
		}
	}
	return true
}

// parseFence extracts the marker character and run length from an opening
// fence line.
func parseFence(text string) (marker byte, length int) {
	trimmed := strings.TrimLeft(text, " \t")
	if len(trimmed) == 0 {
		return 0, 0
	}
	marker = trimmed[0]
	for length < len(trimmed) && trimmed[length] == marker {
		length++
	}
	return marker, length
}

// isClosingFence reports whether the line closes a fence opened with the
// given marker and length: same marker, at least as long, nothing else but
// whitespace.
func isClosingFence(text string, marker byte, openLen int) bool {
	trimmed := strings.TrimLeft(text, " \t")
	if len(trimmed) == 0 || trimmed[0] != marker {
		return false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == marker {
		n++
	}
	if n < openLen {
		return false
	}
	return strings.TrimSpace(trimmed[n:]) == ""
}

// sentenceSplit finds the byte offset just past the last terminal
// punctuation mark that is followed by whitespace, or 0 when the text holds
// no completed sentence.
func sentenceSplit(s string) int {
	cut := 0
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			switch s[i+1] {
			case ' ', '\t', '\n', '\r':
				cut = i + 1
			}
		}
	}
	return cut
}
