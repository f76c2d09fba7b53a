package digest

import (
	"strings"
	"unicode/utf8"
)

// Split breaks text into chunks of at most limit runes, cutting on line
// boundaries where possible. Chat platforms reject longer messages.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			// a single line longer than the limit is hard-cut outside markup
			r := []rune(line)
			cut := safeCut(r, limit)
			chunks = append(chunks, string(r[:cut]))
			line = string(r[cut:])
			ln -= cut
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return chunks
}

// safeCut returns the largest index <= limit at which r can be cut without
// splitting an HTML tag, an open element such as <b>...</b>, or an entity
// such as &amp;. When no such index exists it falls back to limit.
func safeCut(r []rune, limit int) int {
	var (
		depth    int
		inTag    bool
		closing  bool
		inEntity bool
		safe     int
	)
	for i := 0; i < limit; i++ {
		if !inTag && !inEntity && depth == 0 && i > 0 {
			safe = i
		}
		switch c := r[i]; {
		case inTag:
			if c == '>' {
				inTag = false
				if closing {
					depth--
				} else if r[i-1] != '/' {
					depth++
				}
			}
		case inEntity:
			if c == ';' || c == ' ' {
				inEntity = false
			}
		case c == '<' && i+1 < len(r) && isTagStart(r[i+1]):
			inTag = true
			closing = r[i+1] == '/'
		case c == '&':
			inEntity = true
		}
		if depth < 0 {
			depth = 0
		}
	}
	if !inTag && !inEntity && depth == 0 {
		safe = limit
	}
	if safe == 0 {
		return limit
	}
	return safe
}

func isTagStart(c rune) bool {
	return c == '/' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
