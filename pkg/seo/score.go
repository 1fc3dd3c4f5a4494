package seo

import (
	"fmt"
	"math"
	"strings"

	"github.com/pressforge/pressforge/pkg/models"
)

const (
	minIdealDensity = 0.8
	maxIdealDensity = 2.0

	defaultTargetWordCount = 1500
)

// ScoreInput carries one draft and its targets into the scoring gate.
type ScoreInput struct {
	Content           string
	PrimaryKeyword    string
	SecondaryKeywords []string
	TargetWordCount   int
	MetaTitle         string
	MetaDescription   string
}

// Scorer is the deterministic five-metric SEO gate. It performs no I/O and
// yields identical results for identical inputs.
type Scorer struct {
	analyzer *Analyzer
}

// NewScorer creates a scorer backed by the regex content analyzer.
func NewScorer() *Scorer {
	return &Scorer{analyzer: NewAnalyzer()}
}

// Score evaluates a finished draft against the weighted rubric and returns the
// aggregate result with per-metric detail and concrete improvement
// instructions for the rewrite loop.
func (s *Scorer) Score(input ScoreInput) models.SEOScoreResult {
	text := s.analyzer.StripHTML(input.Content)
	wordCount := s.analyzer.WordCount(text)
	improvements := make([]string, 0, 8)

	keyword := s.scoreKeywordUsage(input, text, wordCount, &improvements)
	length := s.scoreContentLength(input, wordCount, &improvements)
	readability := s.scoreReadability(text, &improvements)
	heading := s.scoreHeadingStructure(input, &improvements)
	image := s.scoreImageOptimization(input, &improvements)

	overall := int(math.Round(
		float64(keyword.Score)*models.WeightKeywordUsage +
			float64(length.Score)*models.WeightContentLength +
			float64(readability.Score)*models.WeightReadability +
			float64(heading.Score)*models.WeightHeadingStructure +
			float64(image.Score)*models.WeightImageOptimization,
	))

	return models.SEOScoreResult{
		Overall:     overall,
		LetterGrade: models.LetterGrade(overall),
		Metrics: models.ScoreMetrics{
			KeywordUsage:      keyword,
			ContentLength:     length,
			Readability:       readability,
			HeadingStructure:  heading,
			ImageOptimization: image,
		},
		Improvements: improvements,
		Passed:       overall >= models.PassingScore,
	}
}

func (s *Scorer) scoreKeywordUsage(input ScoreInput, text string, wordCount int, improvements *[]string) models.ScoreMetric {
	keyword := strings.TrimSpace(input.PrimaryKeyword)

	occurrences := s.analyzer.CountKeyword(text, keyword)
	if keyword == "" || occurrences == 0 || wordCount == 0 {
		*improvements = append(*improvements, "Set a primary keyword and use it naturally throughout the content")

		return models.ScoreMetric{Score: 30, Detail: "Primary keyword is missing from the content"}
	}

	density := float64(occurrences) / float64(wordCount) * 100
	headings := s.analyzer.Headings(input.Content)
	inH1 := s.analyzer.ContainsKeyword(headings.H1Texts, keyword)

	inBandScore := 100
	if !inH1 {
		inBandScore = 85

		*improvements = append(*improvements, fmt.Sprintf("Add '%s' to the main H1 heading", keyword))
	}

	var score int

	switch {
	case density >= minIdealDensity && density <= maxIdealDensity:
		score = inBandScore
	case density < minIdealDensity:
		score = 40 + int(math.Round(density/minIdealDensity*float64(inBandScore-40)))
		target := int(math.Ceil(float64(wordCount) * minIdealDensity / 100))

		*improvements = append(*improvements, fmt.Sprintf("Increase '%s' usage from %d to %d mentions", keyword, occurrences, target))
	default:
		score = inBandScore - int(math.Round((density-maxIdealDensity)*25))
		if score < 50 {
			score = 50
		}

		*improvements = append(*improvements, fmt.Sprintf("Reduce '%s' usage to avoid keyword stuffing (current density %.1f%%)", keyword, density))
	}

	if len(input.SecondaryKeywords) > 0 {
		found := 0
		missing := make([]string, 0, len(input.SecondaryKeywords))

		for _, secondary := range input.SecondaryKeywords {
			if s.analyzer.CountKeyword(text, secondary) > 0 {
				found++
			} else {
				missing = append(missing, secondary)
			}
		}

		if found*2 < len(input.SecondaryKeywords) {
			score -= 10
			if score < 40 {
				score = 40
			}

			*improvements = append(*improvements, "Include more of the secondary keywords: "+strings.Join(missing, ", "))
		}
	}

	detail := fmt.Sprintf("'%s' appears %d times (%.2f%% density)", keyword, occurrences, density)

	return models.ScoreMetric{Score: clampScore(score), Detail: detail}
}

func (s *Scorer) scoreContentLength(input ScoreInput, wordCount int, improvements *[]string) models.ScoreMetric {
	target := input.TargetWordCount
	if target <= 0 {
		target = defaultTargetWordCount
	}

	ratio := float64(wordCount) / float64(target)
	detail := fmt.Sprintf("%d words of a %d-word target", wordCount, target)

	var score int

	switch {
	case ratio >= 0.95 && ratio <= 1.4:
		score = 100
	case ratio > 1.4:
		// Long-form is acceptable, not penalized further.
		score = 90
	case ratio >= 0.85:
		score = 85

		*improvements = append(*improvements, fmt.Sprintf("Add roughly %d more words to reach the %d-word target", int(float64(target)*0.95)-wordCount, target))
	case ratio >= 0.70:
		score = 65

		*improvements = append(*improvements, fmt.Sprintf("Add roughly %d more words to reach the %d-word target", int(float64(target)*0.95)-wordCount, target))
	default:
		score = int(math.Round(65 * ratio))
		if score < 30 {
			score = 30
		}

		*improvements = append(*improvements, fmt.Sprintf("Content is far too short; add roughly %d more words to approach the %d-word target", target-wordCount, target))
	}

	return models.ScoreMetric{Score: clampScore(score), Detail: detail}
}

func (s *Scorer) scoreReadability(text string, improvements *[]string) models.ScoreMetric {
	ease := s.analyzer.FleschReadingEase(text)
	detail := fmt.Sprintf("Flesch reading ease %.1f", ease)

	var score int

	switch {
	case ease >= 60:
		score = 100
	case ease >= 50:
		score = 85
	case ease >= 40:
		score = 70

		*improvements = append(*improvements, fmt.Sprintf("Shorten sentences and use simpler words to improve readability (Flesch score %.0f)", ease))
	default:
		score = 50

		*improvements = append(*improvements, fmt.Sprintf("Content is hard to read (Flesch score %.0f); aim for a 6th-8th grade reading level", ease))
	}

	return models.ScoreMetric{Score: score, Detail: detail}
}

func (s *Scorer) scoreHeadingStructure(input ScoreInput, improvements *[]string) models.ScoreMetric {
	headings := s.analyzer.Headings(input.Content)
	detail := fmt.Sprintf("%d H1, %d H2, %d H3", headings.H1Count, headings.H2Count, headings.H3Count)

	var score int

	switch {
	case headings.H1Count == 0:
		score = 40

		*improvements = append(*improvements, "Add an H1 heading that includes the primary keyword")
	case headings.H1Count > 1:
		score = 60

		*improvements = append(*improvements, fmt.Sprintf("Convert %d extra H1 heading(s) to H2 so the page has exactly one H1", headings.H1Count-1))
	case headings.H2Count >= 3 && headings.H2Count <= 8:
		score = 100
	case headings.H2Count >= 2:
		score = 90
	default:
		score = 70

		*improvements = append(*improvements, "Add more H2 subheadings to break the content into scannable sections")
	}

	return models.ScoreMetric{Score: score, Detail: detail}
}

func (s *Scorer) scoreImageOptimization(input ScoreInput, improvements *[]string) models.ScoreMetric {
	images := s.analyzer.Images(input.Content)
	detail := fmt.Sprintf("%d images, %d with alt text", images.Total, images.WithAlt)

	var score int

	switch {
	case images.Total == 0:
		score = 50

		*improvements = append(*improvements, "Add at least 2-3 images with descriptive alt text")
	case images.WithAlt == images.Total && images.Total == 1:
		score = 70

		*improvements = append(*improvements, "Add more images to break up the content")
	case images.WithAlt == images.Total:
		if s.analyzer.ContainsKeyword(images.AltTexts, input.PrimaryKeyword) {
			score = 100
		} else {
			score = 85

			*improvements = append(*improvements, "Include the primary keyword in at least one image alt text")
		}
	default:
		coverage := float64(images.WithAlt) / float64(images.Total)
		score = 50 + int(math.Round(35*coverage))

		*improvements = append(*improvements, fmt.Sprintf("Add alt text to the %d image(s) missing it", images.Total-images.WithAlt))
	}

	return models.ScoreMetric{Score: clampScore(score), Detail: detail}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}

	if score > 100 {
		return 100
	}

	return score
}
