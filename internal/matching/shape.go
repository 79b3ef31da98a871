package matching

// JobMatch presents a result of a résumé → jobs request.
type JobMatch struct {
	JobID                string         `json:"jobId"`
	JobTitle             string         `json:"jobTitle"`
	Rank                 int            `json:"rank"`
	Score                float64        `json:"score"`
	VectorScore          float64        `json:"vectorScore"`
	FitReasons           string         `json:"fitReasons"`
	HighlightedSkills    []string       `json:"highlightedSkills"`
	Gaps                 []string       `json:"gaps"`
	RecommendedQuestions []string       `json:"recommendedQuestions"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// ResumeMatch presents a result of a job → résumés request.
type ResumeMatch struct {
	ResumeID             string         `json:"resumeId"`
	ResumeName           string         `json:"resumeName"`
	Rank                 int            `json:"rank"`
	Score                float64        `json:"score"`
	VectorScore          float64        `json:"vectorScore"`
	Reasons              string         `json:"reasons"`
	HighlightedSkills    []string       `json:"highlightedSkills"`
	Gaps                 []string       `json:"gaps"`
	RecommendedQuestions []string       `json:"recommendedQuestions"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

// Shape renames result fields for the given direction. It returns
// []JobMatch for ResumeToJobs and []ResumeMatch for JobToResumes.
func Shape(direction Direction, results []RankedResult) any {
	if direction == JobToResumes {
		return ShapeResumes(results)
	}
	return ShapeJobs(results)
}

// ShapeJobs converts results into job matches.
func ShapeJobs(results []RankedResult) []JobMatch {
	matches := make([]JobMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, JobMatch{
			JobID:                r.SourceID,
			JobTitle:             r.Title,
			Rank:                 r.Rank,
			Score:                r.RerankScore,
			VectorScore:          r.VectorScore,
			FitReasons:           r.Reason,
			HighlightedSkills:    nonNil(r.HighlightedSkills),
			Gaps:                 nonNil(r.Gaps),
			RecommendedQuestions: nonNil(r.RecommendedQuestions),
			Metadata:             r.Metadata,
		})
	}
	return matches
}

// ShapeResumes converts results into résumé matches.
func ShapeResumes(results []RankedResult) []ResumeMatch {
	matches := make([]ResumeMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, ResumeMatch{
			ResumeID:             r.SourceID,
			ResumeName:           r.Title,
			Rank:                 r.Rank,
			Score:                r.RerankScore,
			VectorScore:          r.VectorScore,
			Reasons:              r.Reason,
			HighlightedSkills:    nonNil(r.HighlightedSkills),
			Gaps:                 nonNil(r.Gaps),
			RecommendedQuestions: nonNil(r.RecommendedQuestions),
			Metadata:             r.Metadata,
		})
	}
	return matches
}
