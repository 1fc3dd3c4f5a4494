package seo

import (
	"fmt"
	"strings"

	"github.com/pressforge/pressforge/pkg/models"
)

// BuildRewritePrompt turns a scoring result into a self-contained instruction
// set for the next text-generation pass. The output enumerates every
// improvement, restates the five metric scores, the keyword and the target
// length, and closes with the structural rules the rewrite must satisfy, so
// the generator needs no additional context.
func BuildRewritePrompt(originalContent string, result models.SEOScoreResult, primaryKeyword string, targetWordCount int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The following blog post scored %d/100 (%s) on an SEO review and must be rewritten to score at least %d.\n\n",
		result.Overall, result.LetterGrade, models.PassingScore)

	b.WriteString("Required improvements:\n")

	for i, improvement := range result.Improvements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, improvement)
	}

	if len(result.Improvements) == 0 {
		b.WriteString("1. Tighten wording and structure; no specific defects were flagged.\n")
	}

	b.WriteString("\nCurrent metric scores:\n")
	fmt.Fprintf(&b, "- Keyword usage: %d/100 (%s)\n", result.Metrics.KeywordUsage.Score, result.Metrics.KeywordUsage.Detail)
	fmt.Fprintf(&b, "- Content length: %d/100 (%s)\n", result.Metrics.ContentLength.Score, result.Metrics.ContentLength.Detail)
	fmt.Fprintf(&b, "- Readability: %d/100 (%s)\n", result.Metrics.Readability.Score, result.Metrics.Readability.Detail)
	fmt.Fprintf(&b, "- Heading structure: %d/100 (%s)\n", result.Metrics.HeadingStructure.Score, result.Metrics.HeadingStructure.Detail)
	fmt.Fprintf(&b, "- Image optimization: %d/100 (%s)\n", result.Metrics.ImageOptimization.Score, result.Metrics.ImageOptimization.Detail)

	fmt.Fprintf(&b, "\nPrimary keyword: %q\n", primaryKeyword)
	fmt.Fprintf(&b, "Target length: about %d words\n", targetWordCount)

	b.WriteString("\nStructural rules:\n")
	fmt.Fprintf(&b, "- Exactly one H1 heading, and it must contain %q\n", primaryKeyword)
	b.WriteString("- Use 3-6 H2 subheadings\n")
	b.WriteString("- Write at a 6th-8th grade reading level\n")
	b.WriteString("- Keep the primary keyword density between 0.8% and 2.0%\n")
	b.WriteString("- Every image must have descriptive alt text\n")
	b.WriteString("- Keep all [IMAGE:n] placeholder tokens exactly where images belong\n")

	b.WriteString("\nOriginal content:\n")
	b.WriteString(originalContent)
	b.WriteString("\n\nReturn only the rewritten HTML content. Do not add commentary, explanations, or markdown fences.")

	return b.String()
}
