package models

// GenerationRequest is everything the orchestrator needs to produce one post.
type GenerationRequest struct {
	Topic             string    `json:"topic"              validate:"required,min=3"`
	Location          string    `json:"location"`
	BlogType          string    `json:"blog_type"`
	Tone              string    `json:"tone"`
	CompanyName       string    `json:"company_name"`
	PrimaryKeyword    string    `json:"primary_keyword"    validate:"required"`
	SecondaryKeywords []string  `json:"secondary_keywords"`
	TargetWordCount   int       `json:"target_word_count"  validate:"min=0"`
	ReadingLevel      string    `json:"reading_level"`
	ImageMode         ImageMode `json:"image_mode"         validate:"omitempty,oneof=auto manual enhance"`
	// Images supplies pre-hosted URLs or base64 payloads for manual/enhance mode.
	Images []GeneratedImage `json:"images,omitempty"`
}

// GenerationResult is the final payload of a successful run. It always carries
// the achieved score, even when the passing threshold was never reached, so
// the caller can decide whether to accept a best-effort result.
type GenerationResult struct {
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Outline         *BlogOutline   `json:"outline"`
	SEOScore        SEOScoreResult `json:"seo_score"`
	ImageURLs       []string       `json:"image_urls"`
	MetaTitle       string         `json:"meta_title"`
	MetaDescription string         `json:"meta_description"`
	RewriteAttempts int            `json:"rewrite_attempts"`
}
