package matching

import (
	"fmt"
	"strings"
)

// Direction selects which side of the market the query text comes from.
type Direction string

const (
	// ResumeToJobs matches a résumé against posted jobs.
	ResumeToJobs Direction = "resume_to_jobs"
	// JobToResumes matches a job description against stored résumés.
	JobToResumes Direction = "job_to_resumes"
)

// ParseDirection accepts the canonical names as well as the short CLI forms
// "resume" and "job".
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "resume", "resume-to-jobs", string(ResumeToJobs):
		return ResumeToJobs, nil
	case "job", "job-to-resumes", string(JobToResumes):
		return JobToResumes, nil
	default:
		return "", fmt.Errorf("unknown direction %q (expected resume or job)", value)
	}
}

func (d Direction) String() string { return string(d) }

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == ResumeToJobs || d == JobToResumes
}

// Label prefixes the query summary shown to the reranker.
func (d Direction) Label() string {
	if d == JobToResumes {
		return "Job Description:"
	}
	return "Resume Summary:"
}

// Candidate is a retrieved document prepared for reranking. Index is the only
// reference the reranker gets; SourceID and Metadata stay on this side.
type Candidate struct {
	Index       int            `json:"index"`
	Title       string         `json:"title"`
	TextExcerpt string         `json:"textExcerpt"`
	VectorScore float64        `json:"vectorScore"`
	SourceID    string         `json:"sourceId"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RankedResult is a candidate that survived reranking.
type RankedResult struct {
	Candidate
	Rank                 int      `json:"rank"`
	RerankScore          float64  `json:"rerankScore"`
	Reason               string   `json:"reason"`
	HighlightedSkills    []string `json:"highlightedSkills"`
	Gaps                 []string `json:"gaps"`
	RecommendedQuestions []string `json:"recommendedQuestions"`
}

// MatchQuery is the input of one matching request. Zero top-k values fall
// back to the matcher defaults.
type MatchQuery struct {
	SourceText  string
	InitialTopK int
	FinalTopK   int
}
