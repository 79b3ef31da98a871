// Package mock provides a deterministic completer for offline runs and tests.
// It reads the numbered candidate list from a rerank prompt and answers with
// a well-formed rankings document that keeps the listed order.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/hh-matcher/internal/ai"
)

const (
	maxRankings = 10
	topScore    = 0.95
	scoreStep   = 0.05
	minScore    = 0.05
)

// Section markers of the rerank prompt. Candidate lines never contain a
// newline, so the last candidates marker is always the real one.
const (
	queryMarker      = "\nQuery:\n"
	candidatesMarker = "\nCandidates:\n"
	responseMarker   = "\nJSON Response:"
)

var (
	candidateLine = regexp.MustCompile(`(?m)^(\d+)\. (.*?) - (.*)$`)
	topKPattern   = regexp.MustCompile(`top_k: (\d+)`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}+#]+`)
)

// Completer implements ai.Completer without any network access.
type Completer struct{}

// New returns a mock Completer.
func New() *Completer {
	return &Completer{}
}

type ranking struct {
	CandidateIndex       int      `json:"candidate_index"`
	Score                float64  `json:"score"`
	Reason               string   `json:"reason"`
	HighlightedSkills    []string `json:"highlighted_skills"`
	Gaps                 []string `json:"gaps"`
	RecommendedQuestions []string `json:"recommended_questions"`
}

// Complete implements ai.Completer.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt must not be empty")
	}

	rules, query, candidates := sections(prompt)

	limit := maxRankings
	if match := topKPattern.FindStringSubmatch(rules); len(match) == 2 {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	queryWords := map[string]struct{}{}
	for _, word := range words(query) {
		queryWords[word] = struct{}{}
	}

	rankings := make([]ranking, 0, limit)
	for _, match := range candidateLine.FindAllStringSubmatch(candidates, -1) {
		if len(rankings) == limit {
			break
		}

		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 {
			continue
		}

		score := topScore - scoreStep*float64(len(rankings))
		if score < minScore {
			score = minScore
		}

		title := strings.TrimSpace(match[2])
		rankings = append(rankings, ranking{
			CandidateIndex:       n - 1,
			Score:                score,
			Reason:               fmt.Sprintf("Listed at position %d by vector similarity.", n),
			HighlightedSkills:    overlap(queryWords, title+" "+match[3]),
			Gaps:                 []string{},
			RecommendedQuestions: []string{fmt.Sprintf("What was your most recent experience relevant to %q?", title)},
		})
	}

	payload, err := json.Marshal(map[string]any{"rankings": rankings})
	if err != nil {
		return "", fmt.Errorf("marshal mock rankings: %w", err)
	}

	return string(payload), nil
}

// sections splits a rerank prompt into the instructions, the query text and
// the candidate list. The query is free text and may look like anything.
func sections(prompt string) (rules, query, candidates string) {
	rules = prompt

	queryStart := strings.Index(prompt, queryMarker)
	if queryStart >= 0 {
		rules = prompt[:queryStart]
	}

	candidatesStart := strings.LastIndex(prompt, candidatesMarker)
	if candidatesStart < 0 || candidatesStart < queryStart {
		return rules, "", ""
	}

	if queryStart >= 0 {
		query = prompt[queryStart+len(queryMarker) : candidatesStart]
	}

	candidates = prompt[candidatesStart+len(candidatesMarker):]
	if end := strings.LastIndex(candidates, responseMarker); end >= 0 {
		candidates = candidates[:end]
	}

	return rules, query, candidates
}

func words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func overlap(query map[string]struct{}, text string) []string {
	result := []string{}
	seen := map[string]struct{}{}
	for _, word := range words(text) {
		if len([]rune(word)) < 2 {
			continue
		}
		if _, ok := query[word]; !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		result = append(result, word)
		if len(result) == 5 {
			break
		}
	}
	return result
}

var _ ai.Completer = (*Completer)(nil)
