package seo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pressforge/pressforge/pkg/models"
)

// checkFacts is the pre-computed view of a draft shared by all checklist
// checks so each check stays a pure function of it.
type checkFacts struct {
	input      ScoreInput
	text       string
	words      []string
	sentences  []string
	paragraphs []string
	headings   Headings
	analyzer   *Analyzer
}

// Check is one pluggable checklist item. Checks are independent of the
// five-metric gate and carry their own thresholds.
type Check struct {
	ID       string
	Label    string
	Priority models.CheckPriority
	MaxScore int
	Run      func(f *checkFacts) (models.CheckStatus, int, string)
}

// Checklist runs a registry of diagnostic checks against a draft. It serves
// the human-readable report surface, not the automated gate.
type Checklist struct {
	analyzer *Analyzer
	checks   []Check
}

// NewChecklist creates a checklist with the default check registry.
func NewChecklist() *Checklist {
	c := &Checklist{analyzer: NewAnalyzer()}
	c.checks = defaultChecks()

	return c
}

// Register appends a custom check to the registry.
func (c *Checklist) Register(check Check) {
	c.checks = append(c.checks, check)
}

// Run evaluates every registered check in registration order.
func (c *Checklist) Run(input ScoreInput) []models.CheckResult {
	text := c.analyzer.StripHTML(input.Content)

	facts := &checkFacts{
		input:      input,
		text:       text,
		words:      c.analyzer.Words(text),
		sentences:  c.analyzer.Sentences(text),
		paragraphs: c.analyzer.Paragraphs(input.Content),
		headings:   c.analyzer.Headings(input.Content),
		analyzer:   c.analyzer,
	}

	results := make([]models.CheckResult, 0, len(c.checks))

	for _, check := range c.checks {
		status, score, detail := check.Run(facts)

		results = append(results, models.CheckResult{
			ID:       check.ID,
			Label:    check.Label,
			Status:   status,
			Priority: check.Priority,
			Score:    score,
			MaxScore: check.MaxScore,
			Detail:   detail,
		})
	}

	return results
}

var passiveRe = regexp.MustCompile(`(?i)\b(?:is|are|was|were|be|been|being)\s+\w+(?:ed|en)\b`)

func defaultChecks() []Check {
	return []Check{
		{
			ID: "keyword-density", Label: "Primary keyword density", Priority: models.CheckPriorityHigh, MaxScore: 15,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.words) == 0 {
					return models.CheckStatusFail, 0, "no content"
				}

				occurrences := f.analyzer.CountKeyword(f.text, f.input.PrimaryKeyword)
				density := float64(occurrences) / float64(len(f.words)) * 100
				detail := fmt.Sprintf("%.2f%% (%d occurrences)", density, occurrences)

				switch {
				case density >= minIdealDensity && density <= maxIdealDensity:
					return models.CheckStatusPass, 15, detail
				case occurrences > 0:
					return models.CheckStatusWarning, 8, detail
				default:
					return models.CheckStatusFail, 0, "primary keyword not found"
				}
			},
		},
		{
			ID: "keyword-first-paragraph", Label: "Keyword in first paragraph", Priority: models.CheckPriorityHigh, MaxScore: 10,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.paragraphs) == 0 {
					return models.CheckStatusFail, 0, "no paragraphs found"
				}

				if f.analyzer.CountKeyword(f.paragraphs[0], f.input.PrimaryKeyword) > 0 {
					return models.CheckStatusPass, 10, "keyword appears in the opening paragraph"
				}

				return models.CheckStatusFail, 0, "keyword missing from the opening paragraph"
			},
		},
		{
			ID: "keyword-in-headings", Label: "Keyword in headings", Priority: models.CheckPriorityMedium, MaxScore: 10,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				inH1 := f.analyzer.ContainsKeyword(f.headings.H1Texts, f.input.PrimaryKeyword)
				inH2 := f.analyzer.ContainsKeyword(f.headings.H2Texts, f.input.PrimaryKeyword)

				switch {
				case inH1 && inH2:
					return models.CheckStatusPass, 10, "keyword appears in H1 and at least one H2"
				case inH1 || inH2:
					return models.CheckStatusWarning, 6, "keyword appears in some headings"
				default:
					return models.CheckStatusFail, 0, "keyword missing from all headings"
				}
			},
		},
		{
			ID: "keyword-distribution", Label: "Keyword distribution", Priority: models.CheckPriorityMedium, MaxScore: 10,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.words) < 3 {
					return models.CheckStatusFail, 0, "not enough content"
				}

				third := len(f.words) / 3
				parts := []string{
					strings.Join(f.words[:third], " "),
					strings.Join(f.words[third:2*third], " "),
					strings.Join(f.words[2*third:], " "),
				}

				covered := 0
				for _, part := range parts {
					if f.analyzer.CountKeyword(part, f.input.PrimaryKeyword) > 0 {
						covered++
					}
				}

				detail := fmt.Sprintf("keyword present in %d of 3 document thirds", covered)

				switch covered {
				case 3:
					return models.CheckStatusPass, 10, detail
				case 2:
					return models.CheckStatusWarning, 6, detail
				default:
					return models.CheckStatusFail, 2, detail
				}
			},
		},
		{
			ID: "secondary-keywords", Label: "Secondary keyword coverage", Priority: models.CheckPriorityLow, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.input.SecondaryKeywords) == 0 {
					return models.CheckStatusPass, 5, "no secondary keywords configured"
				}

				found := 0
				for _, keyword := range f.input.SecondaryKeywords {
					if f.analyzer.CountKeyword(f.text, keyword) > 0 {
						found++
					}
				}

				detail := fmt.Sprintf("%d of %d secondary keywords used", found, len(f.input.SecondaryKeywords))

				switch {
				case found == len(f.input.SecondaryKeywords):
					return models.CheckStatusPass, 5, detail
				case found*2 >= len(f.input.SecondaryKeywords):
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
		{
			ID: "word-count", Label: "Word count", Priority: models.CheckPriorityHigh, MaxScore: 15,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				target := f.input.TargetWordCount
				if target <= 0 {
					target = defaultTargetWordCount
				}

				ratio := float64(len(f.words)) / float64(target)
				detail := fmt.Sprintf("%d words (target %d)", len(f.words), target)

				switch {
				case ratio >= 0.95:
					return models.CheckStatusPass, 15, detail
				case ratio >= 0.70:
					return models.CheckStatusWarning, 9, detail
				default:
					return models.CheckStatusFail, 3, detail
				}
			},
		},
		{
			ID: "flesch-ease", Label: "Flesch reading ease", Priority: models.CheckPriorityMedium, MaxScore: 10,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				ease := f.analyzer.FleschReadingEase(f.text)
				detail := fmt.Sprintf("reading ease %.1f", ease)

				switch {
				case ease >= 60:
					return models.CheckStatusPass, 10, detail
				case ease >= 40:
					return models.CheckStatusWarning, 6, detail
				default:
					return models.CheckStatusFail, 2, detail
				}
			},
		},
		{
			ID: "grade-level", Label: "Reading grade level", Priority: models.CheckPriorityMedium, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				grade := f.analyzer.FleschKincaidGrade(f.text)
				detail := fmt.Sprintf("grade level %.1f", grade)

				switch {
				case grade >= 6 && grade <= 9:
					return models.CheckStatusPass, 5, detail
				case grade <= 12:
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
		{
			ID: "sentence-length", Label: "Average sentence length", Priority: models.CheckPriorityLow, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.sentences) == 0 {
					return models.CheckStatusFail, 0, "no sentences found"
				}

				avg := float64(len(f.words)) / float64(len(f.sentences))
				detail := fmt.Sprintf("%.1f words per sentence", avg)

				switch {
				case avg <= 20:
					return models.CheckStatusPass, 5, detail
				case avg <= 25:
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
		{
			ID: "long-sentences", Label: "Long sentence ratio", Priority: models.CheckPriorityLow, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.sentences) == 0 {
					return models.CheckStatusFail, 0, "no sentences found"
				}

				long := 0
				for _, sentence := range f.sentences {
					if len(strings.Fields(sentence)) > 25 {
						long++
					}
				}

				ratio := float64(long) / float64(len(f.sentences))
				detail := fmt.Sprintf("%.0f%% of sentences exceed 25 words", ratio*100)

				switch {
				case ratio <= 0.10:
					return models.CheckStatusPass, 5, detail
				case ratio <= 0.25:
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
		{
			ID: "passive-voice", Label: "Passive voice ratio", Priority: models.CheckPriorityLow, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				if len(f.sentences) == 0 {
					return models.CheckStatusFail, 0, "no sentences found"
				}

				passive := 0
				for _, sentence := range f.sentences {
					if passiveRe.MatchString(sentence) {
						passive++
					}
				}

				ratio := float64(passive) / float64(len(f.sentences))
				detail := fmt.Sprintf("%.0f%% of sentences look passive", ratio*100)

				switch {
				case ratio <= 0.10:
					return models.CheckStatusPass, 5, detail
				case ratio <= 0.20:
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
		{
			ID: "paragraph-count", Label: "Paragraph count", Priority: models.CheckPriorityLow, MaxScore: 5,
			Run: func(f *checkFacts) (models.CheckStatus, int, string) {
				detail := fmt.Sprintf("%d paragraphs", len(f.paragraphs))

				switch {
				case len(f.paragraphs) >= 5:
					return models.CheckStatusPass, 5, detail
				case len(f.paragraphs) >= 3:
					return models.CheckStatusWarning, 3, detail
				default:
					return models.CheckStatusFail, 0, detail
				}
			},
		},
	}
}
