package extract

import "strings"

// Sanitize strips code fences and surrounding prose from a raw model response
// and isolates the outermost balanced JSON container. When both an object and
// an array appear, whichever opening delimiter comes first wins; a tie favors
// the object. If no container is found the trimmed input is returned as-is —
// sanitization never fails, coercion rejects the leftovers instead.
func Sanitize(raw string) string {
	s := strings.TrimSpace(stripFences(raw))

	objIdx := strings.IndexByte(s, '{')
	arrIdx := strings.IndexByte(s, '[')
	if objIdx < 0 && arrIdx < 0 {
		return s
	}

	start := objIdx
	open, close := byte('{'), byte('}')
	if objIdx < 0 || (arrIdx >= 0 && arrIdx < objIdx) {
		start = arrIdx
		open, close = '[', ']'
	}

	if end := matchBalanced(s, start, open, close); end > start {
		return strings.TrimSpace(s[start : end+1])
	}

	// Unbalanced (truncated response): best effort up to the last closer.
	if end := strings.LastIndexByte(s, close); end > start {
		return strings.TrimSpace(s[start : end+1])
	}
	return s
}

// stripFences removes a markdown code fence wrapping, wherever it starts.
// "Here is the data:\n```json\n[...]\n```" yields just the fenced body.
func stripFences(s string) string {
	for _, marker := range []string{"```json", "```"} {
		idx := strings.Index(s, marker)
		if idx < 0 {
			continue
		}
		body := s[idx+len(marker):]
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		return body
	}
	return s
}

// matchBalanced returns the index of the closing delimiter matching the
// opener at start, skipping delimiters inside JSON string literals. Returns
// -1 when the container never closes.
func matchBalanced(s string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
