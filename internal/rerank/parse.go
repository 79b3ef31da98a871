package rerank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"go.uber.org/zap"
)

// MaxResults caps the number of rankings taken from one model answer,
// whatever top_k was requested.
const MaxResults = 10

// ErrEmptyResponse is returned when the model answered with blank text.
var ErrEmptyResponse = errors.New("empty rerank response")

// ParseResponse validates a raw model answer against a pool of candidateCount
// candidates. Entries with a missing, non-integral or out-of-range
// candidate_index are dropped, as are repeated indexes after their first
// occurrence. Ranks are dense and follow the order of the surviving entries.
func ParseResponse(raw string, candidateCount, topK int) ([]Ranking, error) {
	return parse(raw, candidateCount, topK, nil)
}

func parse(raw string, candidateCount, topK int, log *zap.Logger) ([]Ranking, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	data, err := decodeResponse(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	if err := validateStructure([]byte(cleaned)); err != nil {
		return nil, err
	}

	entries, _ := data["rankings"].([]any)
	if len(entries) > MaxResults {
		entries = entries[:MaxResults]
	}

	limit := MaxResults
	if topK > 0 && topK < limit {
		limit = topK
	}

	rankings := make([]Ranking, 0, min(len(entries), limit))
	seen := make(map[int]struct{}, len(entries))

	for position, entry := range entries {
		if len(rankings) == limit {
			break
		}

		item, ok := entry.(map[string]any)
		if !ok {
			debug(log, "drop non-object ranking entry", zap.Int("position", position))
			continue
		}

		index, ok := coerceIndex(item["candidate_index"])
		if !ok || index >= candidateCount {
			debug(log, "drop ranking with invalid candidate index",
				zap.Int("position", position),
				zap.Any("candidate_index", item["candidate_index"]),
				zap.Int("candidates", candidateCount),
			)
			continue
		}

		if _, dup := seen[index]; dup {
			debug(log, "drop duplicate ranking", zap.Int("position", position), zap.Int("candidate_index", index))
			continue
		}
		seen[index] = struct{}{}

		score := coerceFloat(item["score"])
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		if score < 0 || score > 1 {
			debug(log, "rerank score outside [0,1]", zap.Int("candidate_index", index), zap.Float64("score", score))
		}

		rankings = append(rankings, Ranking{
			Index:                index,
			Rank:                 len(rankings) + 1,
			Score:                score,
			Reason:               coerceString(item["reason"]),
			HighlightedSkills:    coerceStrings(item["highlighted_skills"]),
			Gaps:                 coerceStrings(item["gaps"]),
			RecommendedQuestions: coerceStrings(item["recommended_questions"]),
		})
	}

	return rankings, nil
}

// decodeResponse keeps numbers as json.Number so that values float64 cannot
// hold are dropped per entry instead of failing the whole answer.
func decodeResponse(cleaned string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the JSON object")
	}
	return data, nil
}

func debug(log *zap.Logger, msg string, fields ...zap.Field) {
	if log != nil {
		log.Debug(msg, fields...)
	}
}

// extractJSON strips markdown fencing and any prose around the outermost
// JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return raw[start : end+1]
	}

	return raw
}
