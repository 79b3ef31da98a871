package embedding

import "unicode"

// Truncate caps text at limit runes. When text is longer it prefers to cut at
// the last whitespace that falls inside the final 10% of the limit, so the
// embedded text ends on a whole word; otherwise it cuts exactly at limit.
// The result never drops below the start of that window, even when a run of
// whitespace reaches further back.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	windowStart := limit - limit/10
	for i := limit; i >= windowStart; i-- {
		if unicode.IsSpace(runes[i]) {
			if end := trimRightSpace(runes[:i]); end >= windowStart && end > 0 {
				return string(runes[:end])
			}
			break
		}
	}

	return string(runes[:limit])
}

// trimRightSpace returns the length of runes without trailing whitespace.
func trimRightSpace(runes []rune) int {
	end := len(runes)
	for end > 0 && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return end
}
