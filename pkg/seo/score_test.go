package seo

import (
	"math"
	"strings"
	"testing"

	"github.com/pressforge/pressforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fillerSentence  = "<p>The sun is warm and the day is long.</p>\n"
	keywordSentence = "<p>We love landscape lighting a lot.</p>\n"
)

// buildPassingContent assembles a draft that satisfies every metric: one H1
// with the keyword, 5 H2s, ~1850 simple words, in-band density, two images
// with keyword-bearing alt text.
func buildPassingContent() string {
	var b strings.Builder

	b.WriteString("<h1>Landscape Lighting Guide</h1>\n")
	b.WriteString(`<img src="https://cdn.example.com/hero.jpg" alt="landscape lighting in a garden">` + "\n")

	for i := 0; i < 5; i++ {
		b.WriteString("<h2>More Good Ideas</h2>\n")
	}

	b.WriteString(`<img src="https://cdn.example.com/two.jpg" alt="warm landscape lighting at dusk">` + "\n")

	// 16 keyword sentences (6 words each) + 193 filler sentences (9 words each)
	// + 3 H1 words + 15 H2 words = 1851 words, 17 keyword occurrences (0.92%).
	for i := 0; i < 16; i++ {
		b.WriteString(keywordSentence)
	}

	for i := 0; i < 193; i++ {
		b.WriteString(fillerSentence)
	}

	return b.String()
}

func TestScore_PassingDraft(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Score(ScoreInput{
		Content:         buildPassingContent(),
		PrimaryKeyword:  "landscape lighting",
		TargetWordCount: 1800,
	})

	assert.Equal(t, 100, result.Metrics.KeywordUsage.Score)
	assert.Equal(t, 100, result.Metrics.ContentLength.Score)
	assert.Equal(t, 100, result.Metrics.Readability.Score)
	assert.Equal(t, 100, result.Metrics.HeadingStructure.Score)
	assert.Equal(t, 100, result.Metrics.ImageOptimization.Score)

	assert.GreaterOrEqual(t, result.Overall, 90)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Improvements)
	assert.Equal(t, "A+", result.LetterGrade)
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer()

	input := ScoreInput{
		Content:           buildPassingContent(),
		PrimaryKeyword:    "landscape lighting",
		SecondaryKeywords: []string{"garden", "outdoor"},
		TargetWordCount:   1800,
	}

	first := scorer.Score(input)
	second := scorer.Score(input)

	assert.Equal(t, first, second)
}

func TestScore_OverallIsWeightedSum(t *testing.T) {
	scorer := NewScorer()

	inputs := []ScoreInput{
		{Content: buildPassingContent(), PrimaryKeyword: "landscape lighting", TargetWordCount: 1800},
		{Content: "<p>Short text with nothing going for it.</p>", PrimaryKeyword: "lighting", TargetWordCount: 1500},
		{Content: "", PrimaryKeyword: "lighting", TargetWordCount: 1000},
	}

	for _, input := range inputs {
		result := scorer.Score(input)

		expected := int(math.Round(
			float64(result.Metrics.KeywordUsage.Score)*0.30 +
				float64(result.Metrics.ContentLength.Score)*0.25 +
				float64(result.Metrics.Readability.Score)*0.20 +
				float64(result.Metrics.HeadingStructure.Score)*0.15 +
				float64(result.Metrics.ImageOptimization.Score)*0.10,
		))

		assert.Equal(t, expected, result.Overall)
		assert.Equal(t, result.Overall >= models.PassingScore, result.Passed)
	}
}

// Exactly 1000 words, 10 keyword occurrences (1.0% density), keyword in H1.
func TestScore_KeywordDensityBoundary(t *testing.T) {
	var b strings.Builder

	b.WriteString("<h1>Lighting Guide</h1>\n")

	for i := 0; i < 9; i++ {
		b.WriteString("<p>We like lighting here.</p>\n")
	}

	for i := 0; i < 106; i++ {
		b.WriteString(fillerSentence)
	}

	b.WriteString("<p>It is a fine day to walk far.</p>\n")

	scorer := NewScorer()
	analyzer := NewAnalyzer()

	text := analyzer.StripHTML(b.String())
	require.Equal(t, 1000, analyzer.WordCount(text))
	require.Equal(t, 10, analyzer.CountKeyword(text, "lighting"))

	result := scorer.Score(ScoreInput{
		Content:        b.String(),
		PrimaryKeyword: "lighting",
	})

	assert.Equal(t, 100, result.Metrics.KeywordUsage.Score)
}

func TestScore_MissingKeyword(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Score(ScoreInput{
		Content:        "<h1>Hello</h1><p>Nothing relevant here at all.</p>",
		PrimaryKeyword: "landscape lighting",
	})

	assert.Equal(t, 30, result.Metrics.KeywordUsage.Score)
	assert.Contains(t, result.Improvements, "Set a primary keyword and use it naturally throughout the content")
}

func TestScore_InBandWithoutH1Keyword(t *testing.T) {
	var b strings.Builder

	b.WriteString("<h1>A Plain Title</h1>\n")

	for i := 0; i < 10; i++ {
		b.WriteString("<p>We like lighting here.</p>\n")
	}

	for i := 0; i < 106; i++ {
		b.WriteString(fillerSentence)
	}

	scorer := NewScorer()

	result := scorer.Score(ScoreInput{
		Content:        b.String(),
		PrimaryKeyword: "lighting",
	})

	assert.Equal(t, 85, result.Metrics.KeywordUsage.Score)
	assert.Contains(t, result.Improvements, "Add 'lighting' to the main H1 heading")
}

func TestScore_SecondaryKeywordPenalty(t *testing.T) {
	var b strings.Builder

	b.WriteString("<h1>Lighting Guide</h1>\n")

	for i := 0; i < 10; i++ {
		b.WriteString("<p>We like lighting here.</p>\n")
	}

	for i := 0; i < 106; i++ {
		b.WriteString(fillerSentence)
	}

	scorer := NewScorer()

	result := scorer.Score(ScoreInput{
		Content:           b.String(),
		PrimaryKeyword:    "lighting",
		SecondaryKeywords: []string{"voltage", "transformer", "fixtures", "wiring"},
	})

	assert.Equal(t, 90, result.Metrics.KeywordUsage.Score)
}

func TestScore_HeadingStructureBoundaries(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{
			name:     "one h1 and three h2",
			content:  "<h1>Title</h1><h2>A</h2><h2>B</h2><h2>C</h2>",
			expected: 100,
		},
		{
			name:     "one h1 and two h2",
			content:  "<h1>Title</h1><h2>A</h2><h2>B</h2>",
			expected: 90,
		},
		{
			name:     "one h1 and one h2",
			content:  "<h1>Title</h1><h2>A</h2>",
			expected: 70,
		},
		{
			name:     "one h1 and nine h2",
			content:  "<h1>Title</h1>" + strings.Repeat("<h2>S</h2>", 9),
			expected: 90,
		},
		{
			name:     "zero h1",
			content:  "<h2>A</h2><h2>B</h2><h2>C</h2><h2>D</h2>",
			expected: 40,
		},
		{
			name:     "multiple h1",
			content:  "<h1>One</h1><h1>Two</h1><h2>A</h2><h2>B</h2><h2>C</h2>",
			expected: 60,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := scorer.Score(ScoreInput{Content: tc.content, PrimaryKeyword: "title"})
			assert.Equal(t, tc.expected, result.Metrics.HeadingStructure.Score)
		})
	}
}

func TestScore_NoHeadingsNoImages(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Score(ScoreInput{
		Content:        "<p>Some plain text about lighting that has no structure at all.</p>",
		PrimaryKeyword: "lighting",
	})

	assert.Equal(t, 40, result.Metrics.HeadingStructure.Score)
	assert.Equal(t, 50, result.Metrics.ImageOptimization.Score)
	assert.Contains(t, result.Improvements, "Add an H1 heading that includes the primary keyword")
	assert.Contains(t, result.Improvements, "Add at least 2-3 images with descriptive alt text")
}

func TestScore_ContentLengthBands(t *testing.T) {
	scorer := NewScorer()

	buildWords := func(n int) string {
		var b strings.Builder
		for i := 0; i < n/9; i++ {
			b.WriteString(fillerSentence)
		}

		return b.String()
	}

	tests := []struct {
		name     string
		words    int
		target   int
		expected int
	}{
		{"on target", 1000, 1000, 100},
		{"slightly short", 900, 1000, 85},
		{"short", 750, 1000, 65},
		{"very long", 1500, 1000, 90},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := scorer.Score(ScoreInput{
				Content:         buildWords(tc.words),
				PrimaryKeyword:  "sun",
				TargetWordCount: tc.target,
			})

			assert.Equal(t, tc.expected, result.Metrics.ContentLength.Score)
		})
	}
}

func TestScore_VeryShortContentScalesDown(t *testing.T) {
	scorer := NewScorer()

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString(fillerSentence)
	}

	// 450 words against a 1000-word target: 65 * 0.45 = 29.25, floored at 30.
	result := scorer.Score(ScoreInput{
		Content:         b.String(),
		PrimaryKeyword:  "sun",
		TargetWordCount: 1000,
	})

	assert.Equal(t, 30, result.Metrics.ContentLength.Score)
}

func TestScore_ImageOptimization(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{
			name: "all alt with keyword",
			content: `<img src="a.jpg" alt="lighting one"><img src="b.jpg" alt="lighting two">` +
				"<p>lighting text</p>",
			expected: 100,
		},
		{
			name: "all alt without keyword",
			content: `<img src="a.jpg" alt="one"><img src="b.jpg" alt="two">` +
				"<p>lighting text</p>",
			expected: 85,
		},
		{
			name:     "single image with alt",
			content:  `<img src="a.jpg" alt="lighting one"><p>lighting text</p>`,
			expected: 70,
		},
		{
			name: "partial alt coverage",
			content: `<img src="a.jpg" alt="lighting"><img src="b.jpg">` +
				"<p>lighting text</p>",
			expected: 68, // 50 + round(35 * 1/2)
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := scorer.Score(ScoreInput{Content: tc.content, PrimaryKeyword: "lighting"})
			assert.Equal(t, tc.expected, result.Metrics.ImageOptimization.Score)
		})
	}
}

func TestLetterGrade(t *testing.T) {
	assert.Equal(t, "A+", models.LetterGrade(95))
	assert.Equal(t, "A", models.LetterGrade(90))
	assert.Equal(t, "A-", models.LetterGrade(85))
	assert.Equal(t, "B", models.LetterGrade(77))
	assert.Equal(t, "C", models.LetterGrade(60))
	assert.Equal(t, "F", models.LetterGrade(44))
}
