package segment

import "strings"

// Tail handling for the provisional block. The unfinished remainder is shown
// ahead of finalization, but only the stable part of it: an open code fence
// must not be highlighted, and half-typed inline syntax (**bold, `code, a
// [link) flickers if rendered and then re-rendered closed.

// OpensFence reports whether the tail's first content line is an unmatched
// opening fence, returning the fence info string (language) when it is.
func OpensFence(tail string) (info string, ok bool) {
	for _, text := range strings.Split(tail, "\n") {
		if isBlank(text) {
			continue
		}
		trimmed := strings.TrimLeft(text, " \t")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			marker := trimmed[0]
			n := 0
			for n < len(trimmed) && trimmed[n] == marker {
				n++
			}
			return strings.TrimSpace(trimmed[n:]), true
		}
		return "", false
	}
	return "", false
}

// SafePoint returns the length of the longest prefix of text that contains
// no unclosed inline markers. Scanning tracks code spans, emphasis,
// strikethrough and link brackets; the first marker that never closes caps
// the safe prefix.
func SafePoint(text string) int {
	n := len(text)
	safe := n

	i := 0
	for i < n {
		c := text[i]

		if c == '\\' && i+1 < n {
			i += 2
			continue
		}

		// Code spans: a run of backticks closes only with an equal run.
		if c == '`' {
			start := i
			run := 0
			for i < n && text[i] == '`' {
				run++
				i++
			}
			close := strings.Index(text[i:], strings.Repeat("`", run))
			if close < 0 {
				if start < safe {
					safe = start
				}
				continue
			}
			i += close + run
			continue
		}

		// Bold and strikethrough use doubled markers.
		if (c == '*' || c == '_' || c == '~') && i+1 < n && text[i+1] == c {
			start := i
			marker := text[i : i+2]
			i += 2
			close := strings.Index(text[i:], marker)
			if close < 0 {
				if start < safe {
					safe = start
				}
				continue
			}
			i += close + 2
			continue
		}

		// Single-marker emphasis.
		if c == '*' || c == '_' {
			start := i
			i++
			close := strings.IndexByte(text[i:], c)
			if close < 0 {
				if start < safe {
					safe = start
				}
				continue
			}
			i += close + 1
			continue
		}

		// Link text: [label](target) or [label][ref].
		if c == '[' {
			start := i
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				if start < safe {
					safe = start
				}
				i++
				continue
			}
			i += end + 1
			if i < n && (text[i] == '(' || text[i] == '[') {
				closer := byte(')')
				if text[i] == '[' {
					closer = ']'
				}
				close := strings.IndexByte(text[i:], closer)
				if close < 0 {
					if start < safe {
						safe = start
					}
					continue
				}
				i += close + 1
			}
			continue
		}

		i++
	}

	// Trim the dangling whitespace a cut can leave behind.
	for safe > 1 && (text[safe-1] == ' ' || text[safe-1] == '\t') {
		safe--
	}
	return safe
}
