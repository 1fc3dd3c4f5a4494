// Package models defines the core domain models for AI blog content generation.
package models

// MetricWeights applied when aggregating the overall SEO score. They sum to 1.
const (
	WeightKeywordUsage      = 0.30
	WeightContentLength     = 0.25
	WeightReadability       = 0.20
	WeightHeadingStructure  = 0.15
	WeightImageOptimization = 0.10
)

// PassingScore is the overall score at which a draft passes the SEO gate.
const PassingScore = 90

// ScoreMetric is one weighted dimension of content quality.
type ScoreMetric struct {
	Score  int    `json:"score"` // clamped to [0,100] before weighting
	Detail string `json:"detail"`
}

// ScoreMetrics holds the five dimensions the gate evaluates.
type ScoreMetrics struct {
	KeywordUsage      ScoreMetric `json:"keyword_usage"`
	ContentLength     ScoreMetric `json:"content_length"`
	Readability       ScoreMetric `json:"readability"`
	HeadingStructure  ScoreMetric `json:"heading_structure"`
	ImageOptimization ScoreMetric `json:"image_optimization"`
}

// SEOScoreResult aggregates the weighted metrics for one content draft.
// Overall is always the weighted sum of the five metric scores, rounded to the
// nearest integer, and Passed is derived from it, never set independently.
type SEOScoreResult struct {
	Overall      int          `json:"overall"`
	LetterGrade  string       `json:"letter_grade"`
	Metrics      ScoreMetrics `json:"metrics"`
	Improvements []string     `json:"improvements"`
	Passed       bool         `json:"passed"`
}

// LetterGrade maps an overall score to the fixed grade table.
func LetterGrade(overall int) string {
	switch {
	case overall >= 95:
		return "A+"
	case overall >= 90:
		return "A"
	case overall >= 85:
		return "A-"
	case overall >= 80:
		return "B+"
	case overall >= 75:
		return "B"
	case overall >= 70:
		return "B-"
	case overall >= 65:
		return "C+"
	case overall >= 60:
		return "C"
	case overall >= 55:
		return "C-"
	case overall >= 50:
		return "D+"
	case overall >= 45:
		return "D"
	default:
		return "F"
	}
}

// CheckStatus is the verdict of one diagnostic checklist item.
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "pass"
	CheckStatusWarning CheckStatus = "warning"
	CheckStatusFail    CheckStatus = "fail"
)

// CheckPriority ranks how urgently a failed check should be addressed.
type CheckPriority string

const (
	CheckPriorityHigh   CheckPriority = "high"
	CheckPriorityMedium CheckPriority = "medium"
	CheckPriorityLow    CheckPriority = "low"
)

// CheckResult is one item of the diagnostic SEO checklist. The checklist is a
// separate surface from the five-metric gate and the two are not required to
// agree numerically.
type CheckResult struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Status   CheckStatus   `json:"status"`
	Priority CheckPriority `json:"priority"`
	Score    int           `json:"score"`
	MaxScore int           `json:"max_score"`
	Detail   string        `json:"detail"`
}
