package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pressforge/pressforge/pkg/models"
)

// ErrInvalidOutline means the model's outline JSON failed schema validation.
var ErrInvalidOutline = errors.New("outline response failed schema validation")

// outlineSchema constrains the model's outline JSON before it is trusted.
const outlineSchema = `{
  "type": "object",
  "required": ["blog_title", "sections"],
  "properties": {
    "blog_title": {"type": "string", "minLength": 1},
    "introduction": {
      "type": "object",
      "properties": {
        "hook": {"type": "string"},
        "key_points": {"type": "array", "items": {"type": "string"}},
        "image_prompt": {"type": "string"}
      }
    },
    "sections": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "key_points": {"type": "array", "items": {"type": "string"}},
          "image_prompt": {"type": "string"},
          "image_placement": {"type": "string", "enum": ["after", "within", ""]}
        }
      }
    },
    "conclusion": {
      "type": "object",
      "properties": {
        "summary": {"type": "string"},
        "call_to_action": {"type": "string"}
      }
    },
    "seo": {
      "type": "object",
      "properties": {
        "primary_keyword": {"type": "string"},
        "secondary_keywords": {"type": "array", "items": {"type": "string"}},
        "meta_title": {"type": "string"},
        "meta_description": {"type": "string"}
      }
    }
  }
}`

// TextService generates outlines and HTML drafts through a chat client. It
// tolerates being called repeatedly with increasingly specific instructions.
type TextService struct {
	client *ChatClient
	schema *gojsonschema.Schema
}

func NewTextService(client *ChatClient) (*TextService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(outlineSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile outline schema: %w", err)
	}

	return &TextService{client: client, schema: schema}, nil
}

// GenerateOutline asks the model for a structured plan and validates the JSON
// before decoding it. Callers fall back to a templated outline on error.
func (s *TextService) GenerateOutline(ctx context.Context, request models.GenerationRequest) (*models.BlogOutline, error) {
	response, err := s.client.Complete(ctx, ChatRequest{
		SystemPrompt: "You are an expert content strategist planning SEO blog posts. Respond with a single JSON object and nothing else.",
		UserPrompt:   buildOutlinePrompt(request),
		Temperature:  0.7,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	raw := stripFences(response.Content)

	result, err := s.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to validate outline response: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidOutline, strings.Join(details, "; "))
	}

	var outline models.BlogOutline
	if err := json.Unmarshal([]byte(raw), &outline); err != nil {
		return nil, fmt.Errorf("failed to decode outline response: %w", err)
	}

	return &outline, nil
}

// GenerateContent writes the full HTML draft from an outline. The draft
// carries positional [IMAGE:n] placeholders instead of real URLs.
func (s *TextService) GenerateContent(ctx context.Context, outline *models.BlogOutline, request models.GenerationRequest) (string, error) {
	response, err := s.client.Complete(ctx, ChatRequest{
		SystemPrompt: "You are an expert blog writer producing clean semantic HTML. Return only HTML content, no markdown fences and no commentary.",
		UserPrompt:   buildContentPrompt(outline, request),
		Temperature:  0.8,
	})
	if err != nil {
		return "", fmt.Errorf("content generation failed: %w", err)
	}

	return stripFences(response.Content), nil
}

// ImproveContentForSEO runs one rewrite pass against a prepared rewrite
// prompt and returns the revised HTML.
func (s *TextService) ImproveContentForSEO(ctx context.Context, prompt string) (string, error) {
	response, err := s.client.Complete(ctx, ChatRequest{
		SystemPrompt: "You are an SEO editor revising HTML blog content. Return only the rewritten HTML, no commentary.",
		UserPrompt:   prompt,
		Temperature:  0.6,
	})
	if err != nil {
		return "", fmt.Errorf("seo rewrite failed: %w", err)
	}

	return stripFences(response.Content), nil
}

func buildOutlinePrompt(request models.GenerationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan a blog post about %q", request.Topic)

	if request.Location != "" {
		fmt.Fprintf(&b, " for readers in %s", request.Location)
	}

	b.WriteString(".\n")

	if request.BlogType != "" {
		fmt.Fprintf(&b, "Post type: %s.\n", request.BlogType)
	}

	if request.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", request.Tone)
	}

	if request.CompanyName != "" {
		fmt.Fprintf(&b, "The post is published by %s.\n", request.CompanyName)
	}

	fmt.Fprintf(&b, "Primary keyword: %q.\n", request.PrimaryKeyword)

	if len(request.SecondaryKeywords) > 0 {
		fmt.Fprintf(&b, "Secondary keywords: %s.\n", strings.Join(request.SecondaryKeywords, ", "))
	}

	b.WriteString(`
Return a JSON object with this shape:
{
  "blog_title": "...",
  "introduction": {"hook": "...", "key_points": ["..."], "image_prompt": "..."},
  "sections": [{"title": "...", "key_points": ["..."], "image_prompt": "...", "image_placement": "after"}],
  "conclusion": {"summary": "...", "call_to_action": "..."},
  "seo": {"primary_keyword": "...", "secondary_keywords": ["..."], "meta_title": "...", "meta_description": "..."}
}
Plan 4 to 6 sections. Give the introduction and each section a vivid image_prompt describing a photograph.`)

	return b.String()
}

func buildContentPrompt(outline *models.BlogOutline, request models.GenerationRequest) string {
	var b strings.Builder

	plan, _ := json.MarshalIndent(outline, "", "  ")

	fmt.Fprintf(&b, "Write a complete blog post in HTML following this outline:\n%s\n\n", plan)
	fmt.Fprintf(&b, "Topic: %s.\n", request.Topic)

	if request.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", request.Tone)
	}

	if request.ReadingLevel != "" {
		fmt.Fprintf(&b, "Target reading level: %s.\n", request.ReadingLevel)
	}

	if request.CompanyName != "" {
		fmt.Fprintf(&b, "Write on behalf of %s.\n", request.CompanyName)
	}

	wordCount := request.TargetWordCount
	if wordCount <= 0 {
		wordCount = 1500
	}

	fmt.Fprintf(&b, "Target length: about %d words.\n", wordCount)
	fmt.Fprintf(&b, "Use the primary keyword %q naturally, including in the H1 heading.\n", request.PrimaryKeyword)
	b.WriteString(`Structural rules:
- Exactly one <h1>, section titles as <h2>.
- Where the outline plans an image, insert <img src="[IMAGE:0]" alt="..."> using the next positional index: the introduction image is [IMAGE:0], then each section image in order.
- Do not invent image URLs; only use [IMAGE:n] placeholders.
Return only the HTML.`)

	return b.String()
}
