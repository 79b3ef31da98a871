package rerank

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

// ExcerptLimit is the number of runes of a candidate excerpt shown to the model.
const ExcerptLimit = 200

//go:embed prompt.md
var promptTemplate string

// BuildPrompt renders the rerank prompt. The output depends only on its
// arguments.
func BuildPrompt(querySummary string, candidates []Candidate, topK int) string {
	if topK <= 0 || topK > MaxResults {
		topK = MaxResults
	}

	var list strings.Builder
	for i, candidate := range candidates {
		if i > 0 {
			list.WriteString("\n")
		}
		fmt.Fprintf(&list, "%d. %s - %s...", i+1, oneLine(candidate.Title), oneLine(truncateRunes(candidate.TextExcerpt, ExcerptLimit)))
	}

	// One pass, so placeholders inside the query are left as typed.
	return strings.NewReplacer(
		"{{QUERY}}", strings.TrimSpace(querySummary),
		"{{TOP_K}}", strconv.Itoa(topK),
		"{{CANDIDATES}}", list.String(),
	).Replace(promptTemplate)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// oneLine keeps one candidate per prompt line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
