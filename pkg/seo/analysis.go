// Package seo implements the deterministic content scoring engine that gates
// the generation pipeline, plus the diagnostic checklist surface.
package seo

import (
	"regexp"
	"strings"
)

// Analyzer extracts the structural facts scoring needs from an HTML draft.
// It is regex based; callers only depend on this surface so a real HTML
// parser can be substituted without changing the Scorer contract.
type Analyzer struct{}

// NewAnalyzer creates a content analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	h1Re = regexp.MustCompile(`(?is)<h1\b[^>]*>(.*?)</h1>`)
	h2Re = regexp.MustCompile(`(?is)<h2\b[^>]*>(.*?)</h2>`)
	h3Re = regexp.MustCompile(`(?is)<h3\b[^>]*>(.*?)</h3>`)

	imgRe       = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	altAttrRe   = regexp.MustCompile(`(?is)\balt\s*=\s*["']([^"']*)["']`)
	paragraphRe = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p>`)

	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	vowelGroupRe    = regexp.MustCompile(`[aeiouy]+`)
	nonWordRe       = regexp.MustCompile(`[^a-z]`)
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&rsquo;", "'",
	"&ndash;", "-",
	"&mdash;", "-",
)

// StripHTML reduces an HTML fragment to plain text with collapsed whitespace.
func (a *Analyzer) StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// Words splits plain text into its word tokens.
func (a *Analyzer) Words(text string) []string {
	return strings.Fields(text)
}

// WordCount counts words in plain text.
func (a *Analyzer) WordCount(text string) int {
	return len(a.Words(text))
}

// SentenceCount counts sentences in plain text. Never returns less than 1 for
// non-empty text so ratio metrics stay defined.
func (a *Analyzer) SentenceCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	count := 0

	for _, part := range sentenceSplitRe.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}

	if count == 0 {
		count = 1
	}

	return count
}

// Sentences returns the non-empty sentences of plain text.
func (a *Analyzer) Sentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	return sentences
}

// SyllableCount approximates syllables in one word by counting vowel groups,
// with a silent trailing "e" adjustment. Minimum 1 for non-empty words.
func (a *Analyzer) SyllableCount(word string) int {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(word), "")
	if cleaned == "" {
		return 0
	}

	count := len(vowelGroupRe.FindAllString(cleaned, -1))

	// Silent trailing e, unless it is the only vowel sound ("the", "be").
	if strings.HasSuffix(cleaned, "e") && !strings.HasSuffix(cleaned, "le") && count > 1 {
		count--
	}

	if count < 1 {
		count = 1
	}

	return count
}

// FleschReadingEase computes 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words)
// over plain text, clamped to [0,100]. Returns 0 for empty text.
func (a *Analyzer) FleschReadingEase(text string) float64 {
	words := a.Words(text)
	if len(words) == 0 {
		return 0
	}

	sentences := a.SentenceCount(text)

	syllables := 0
	for _, word := range words {
		syllables += a.SyllableCount(word)
	}

	ease := 206.835 - 1.015*(float64(len(words))/float64(sentences)) - 84.6*(float64(syllables)/float64(len(words)))

	if ease < 0 {
		return 0
	}

	if ease > 100 {
		return 100
	}

	return ease
}

// FleschKincaidGrade computes the grade-level counterpart of reading ease.
func (a *Analyzer) FleschKincaidGrade(text string) float64 {
	words := a.Words(text)
	if len(words) == 0 {
		return 0
	}

	sentences := a.SentenceCount(text)

	syllables := 0
	for _, word := range words {
		syllables += a.SyllableCount(word)
	}

	grade := 0.39*(float64(len(words))/float64(sentences)) + 11.8*(float64(syllables)/float64(len(words))) - 15.59

	if grade < 0 {
		return 0
	}

	return grade
}

// Headings summarizes the H1/H2/H3 structure of an HTML fragment.
type Headings struct {
	H1Count int
	H2Count int
	H3Count int
	H1Texts []string
	H2Texts []string
}

// Headings extracts heading counts and texts from HTML.
func (a *Analyzer) Headings(html string) Headings {
	h := Headings{}

	for _, match := range h1Re.FindAllStringSubmatch(html, -1) {
		h.H1Count++
		h.H1Texts = append(h.H1Texts, a.StripHTML(match[1]))
	}

	for _, match := range h2Re.FindAllStringSubmatch(html, -1) {
		h.H2Count++
		h.H2Texts = append(h.H2Texts, a.StripHTML(match[1]))
	}

	h.H3Count = len(h3Re.FindAllString(html, -1))

	return h
}

// ImageFacts summarizes <img> usage in an HTML fragment.
type ImageFacts struct {
	Total    int
	WithAlt  int
	AltTexts []string
}

// Images extracts image counts and alt texts from HTML.
func (a *Analyzer) Images(html string) ImageFacts {
	facts := ImageFacts{}

	for _, tag := range imgRe.FindAllString(html, -1) {
		facts.Total++

		alt := altAttrRe.FindStringSubmatch(tag)
		if alt != nil && strings.TrimSpace(alt[1]) != "" {
			facts.WithAlt++
			facts.AltTexts = append(facts.AltTexts, alt[1])
		}
	}

	return facts
}

// Paragraphs returns the plain text of each <p> block.
func (a *Analyzer) Paragraphs(html string) []string {
	matches := paragraphRe.FindAllStringSubmatch(html, -1)
	paragraphs := make([]string, 0, len(matches))

	for _, match := range matches {
		if text := a.StripHTML(match[1]); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return paragraphs
}

// CountKeyword counts whole-word, case-insensitive occurrences of a keyword
// (possibly multi-word) in plain text.
func (a *Analyzer) CountKeyword(text, keyword string) int {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0
	}

	pattern := `(?i)\b` + regexp.QuoteMeta(keyword) + `\b`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0
	}

	return len(re.FindAllString(text, -1))
}

// ContainsKeyword reports whether any of the given texts contains the keyword
// as a whole word, case-insensitively.
func (a *Analyzer) ContainsKeyword(texts []string, keyword string) bool {
	for _, text := range texts {
		if a.CountKeyword(text, keyword) > 0 {
			return true
		}
	}

	return false
}
