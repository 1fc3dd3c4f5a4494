// Package web provides the HTTP API: content generation, SEO scoring, and
// workflow run management.
package web

import "github.com/pressforge/pressforge/pkg/models"

// CreateRunRequest starts a batch run with one task per generation request.
type CreateRunRequest struct {
	Name     string                     `json:"name"     validate:"required,min=3"`
	Requests []models.GenerationRequest `json:"requests" validate:"required,min=1,dive"`
}

// RunActionRequest carries the operator reason for pause and cancel.
type RunActionRequest struct {
	Reason string `json:"reason"`
}

// ScoreRequest scores one HTML draft against the SEO rubric.
type ScoreRequest struct {
	Content           string   `json:"content"            validate:"required"`
	PrimaryKeyword    string   `json:"primary_keyword"`
	SecondaryKeywords []string `json:"secondary_keywords"`
	TargetWordCount   int      `json:"target_word_count"  validate:"min=0"`
	MetaTitle         string   `json:"meta_title"`
	MetaDescription   string   `json:"meta_description"`
}
