// Package generator runs the content pipeline for one generation request:
// outline, image acquisition, content drafting, the SEO rewrite loop, image
// resolution, and placement.
package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressforge/pressforge/pkg/events"
	"github.com/pressforge/pressforge/pkg/hosting"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/seo"
)

// MaxRewriteAttempts caps the SEO improvement loop per request.
const MaxRewriteAttempts = 3

// TextService produces outlines and HTML drafts. It tolerates repeated calls
// with increasingly specific instructions.
type TextService interface {
	GenerateOutline(ctx context.Context, request models.GenerationRequest) (*models.BlogOutline, error)
	GenerateContent(ctx context.Context, outline *models.BlogOutline, request models.GenerationRequest) (string, error)
	ImproveContentForSEO(ctx context.Context, prompt string) (string, error)
}

// ImageService turns one prompt into base64 image data.
type ImageService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProgressFunc observes stage transitions. Calls arrive in strict stage
// order, synchronously at stage boundaries.
type ProgressFunc func(step events.Step, message string)

// Orchestrator sequences the generation stages. Text service and scorer are
// required; image service, media host, and object store are optional tiers.
type Orchestrator struct {
	text        TextService
	images      ImageService
	scorer      *seo.Scorer
	mediaHost   hosting.MediaHost
	objectStore hosting.ObjectStore
	logger      *slog.Logger
}

type Options struct {
	Images      ImageService
	MediaHost   hosting.MediaHost
	ObjectStore hosting.ObjectStore
}

func NewOrchestrator(text TextService, scorer *seo.Scorer, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		text:        text,
		images:      opts.Images,
		scorer:      scorer,
		mediaHost:   opts.MediaHost,
		objectStore: opts.ObjectStore,
		logger:      logger.With("module", "generator"),
	}
}

// Generate runs the full pipeline. Stages execute sequentially; only
// individual image generations run concurrently. Content-generation failure
// is terminal; outline, image, rewrite, and hosting failures degrade.
func (o *Orchestrator) Generate(ctx context.Context, request models.GenerationRequest, progress ProgressFunc) (*models.GenerationResult, error) {
	if progress == nil {
		progress = func(events.Step, string) {}
	}

	outline := o.buildOutline(ctx, request)
	progress(events.StepOutline, fmt.Sprintf("Outline ready: %s", outline.BlogTitle))

	images := o.acquireImages(ctx, request, outline)
	progress(events.StepImages, fmt.Sprintf("Prepared %d images", len(images)))

	content, err := o.text.GenerateContent(ctx, outline, request)
	if err != nil {
		return nil, fmt.Errorf("content stage failed: %w", err)
	}

	progress(events.StepContent, "Draft content generated")

	content, score, rewrites := o.improveUntilPassing(ctx, content, request)
	progress(events.StepSEO, fmt.Sprintf("SEO score %d (%s) after %d rewrites", score.Overall, score.LetterGrade, rewrites))

	progress(events.StepFormat, "Formatting content")

	imageURLs := o.resolveImageURLs(ctx, request, images)
	progress(events.StepUpload, fmt.Sprintf("Resolved %d image URLs", len(imageURLs)))

	content = PlaceImages(content, imageURLs, SEOContext{
		PrimaryKeyword: request.PrimaryKeyword,
		Topic:          request.Topic,
	})

	result := &models.GenerationResult{
		Title:           outline.BlogTitle,
		Content:         content,
		Outline:         outline,
		SEOScore:        score,
		ImageURLs:       imageURLs,
		MetaTitle:       outline.SEO.MetaTitle,
		MetaDescription: outline.SEO.MetaDescription,
		RewriteAttempts: rewrites,
	}

	progress(events.StepComplete, "Generation complete")

	return result, nil
}

// buildOutline asks the text service for a plan and degrades to a templated
// outline on failure so the pipeline always proceeds.
func (o *Orchestrator) buildOutline(ctx context.Context, request models.GenerationRequest) *models.BlogOutline {
	outline, err := o.text.GenerateOutline(ctx, request)
	if err != nil {
		o.logger.WarnContext(ctx, "Outline generation failed, using fallback outline",
			"topic", request.Topic, "error", err)

		return FallbackOutline(request)
	}

	return outline
}

// FallbackOutline is the deterministic degradation path for a failed outline
// stage.
func FallbackOutline(request models.GenerationRequest) *models.BlogOutline {
	title := fmt.Sprintf("Complete Guide to %s", request.Topic)
	if strings.TrimSpace(request.Location) != "" {
		title = fmt.Sprintf("Complete Guide to %s in %s", request.Topic, request.Location)
	}

	sectionTitles := []string{
		fmt.Sprintf("What Is %s", request.Topic),
		fmt.Sprintf("Benefits of %s", request.Topic),
		fmt.Sprintf("How to Choose %s", request.Topic),
		fmt.Sprintf("Common %s Mistakes to Avoid", request.Topic),
		fmt.Sprintf("Getting Started with %s", request.Topic),
	}

	sections := make([]models.OutlineSection, 0, len(sectionTitles))
	for _, sectionTitle := range sectionTitles {
		sections = append(sections, models.OutlineSection{
			Title:          sectionTitle,
			ImagePrompt:    fmt.Sprintf("professional photograph illustrating %s", strings.ToLower(sectionTitle)),
			ImagePlacement: models.ImagePlacementAfter,
		})
	}

	return &models.BlogOutline{
		BlogTitle: title,
		Introduction: models.OutlineIntroduction{
			Hook:        fmt.Sprintf("Everything you need to know about %s.", request.Topic),
			ImagePrompt: fmt.Sprintf("hero photograph of %s", request.Topic),
		},
		Sections: sections,
		Conclusion: models.OutlineConclusion{
			Summary:      fmt.Sprintf("A solid plan makes %s straightforward.", request.Topic),
			CallToAction: "Get in touch to get started.",
		},
		SEO: models.OutlineSEO{
			PrimaryKeyword:    request.PrimaryKeyword,
			SecondaryKeywords: request.SecondaryKeywords,
			MetaTitle:         title,
			MetaDescription:   fmt.Sprintf("Everything you need to know about %s.", request.Topic),
		},
	}
}

// acquireImages sources images per the request's mode. Auto mode generates
// concurrently with positional writes; a single failure never cancels the
// others and leaves an empty record that later resolves to a placeholder.
func (o *Orchestrator) acquireImages(ctx context.Context, request models.GenerationRequest, outline *models.BlogOutline) []models.GeneratedImage {
	switch request.ImageMode {
	case models.ImageModeManual, models.ImageModeEnhance:
		images := make([]models.GeneratedImage, len(request.Images))
		for i, supplied := range request.Images {
			supplied.Index = i
			images[i] = supplied
		}

		return images
	}

	prompts := outline.ImagePrompts()
	images := make([]models.GeneratedImage, len(prompts))

	var wg sync.WaitGroup

	for i, prompt := range prompts {
		images[i] = models.GeneratedImage{Index: i, Prompt: prompt, MimeType: "image/png"}

		if o.images == nil {
			continue
		}

		wg.Add(1)

		go func(i int, prompt string) {
			defer wg.Done()

			b64, err := o.images.Generate(ctx, prompt)
			if err != nil {
				o.logger.WarnContext(ctx, "Image generation failed",
					"index", i, "error", err)

				return
			}

			images[i].Base64 = b64
		}(i, prompt)
	}

	wg.Wait()

	return images
}

// improveUntilPassing scores the draft and rewrites up to MaxRewriteAttempts
// times, keeping the best-scoring draft. A rewrite-call failure stops the
// loop with the best draft so far.
func (o *Orchestrator) improveUntilPassing(ctx context.Context, content string, request models.GenerationRequest) (string, models.SEOScoreResult, int) {
	input := seo.ScoreInput{
		Content:           content,
		PrimaryKeyword:    request.PrimaryKeyword,
		SecondaryKeywords: request.SecondaryKeywords,
		TargetWordCount:   request.TargetWordCount,
	}

	best := content
	bestScore := o.scorer.Score(input)
	rewrites := 0

	for !bestScore.Passed && rewrites < MaxRewriteAttempts {
		prompt := seo.BuildRewritePrompt(best, bestScore, request.PrimaryKeyword, request.TargetWordCount)

		rewritten, err := o.text.ImproveContentForSEO(ctx, prompt)
		if err != nil {
			o.logger.WarnContext(ctx, "SEO rewrite failed, keeping best draft",
				"score", bestScore.Overall, "rewrites", rewrites, "error", err)

			break
		}

		rewrites++

		input.Content = rewritten

		score := o.scorer.Score(input)
		if score.Overall > bestScore.Overall {
			best = rewritten
			bestScore = score
		}
	}

	return best, bestScore, rewrites
}

// resolveImageURLs resolves one durable URL per image in priority order:
// existing URL, media host, object store, data URI, placeholder service.
// Each tier is independently fault-tolerant.
func (o *Orchestrator) resolveImageURLs(ctx context.Context, request models.GenerationRequest, images []models.GeneratedImage) []string {
	urls := make([]string, len(images))

	for i, image := range images {
		urls[i] = o.resolveImageURL(ctx, request, image)
	}

	return urls
}

func (o *Orchestrator) resolveImageURL(ctx context.Context, request models.GenerationRequest, image models.GeneratedImage) string {
	if image.URL != "" {
		return image.URL
	}

	if image.Base64 == "" {
		return hosting.PlaceholderURL(request.Topic, image.Index)
	}

	mimeType := image.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	filename := fmt.Sprintf("%s-image-%d%s", slugify(request.Topic), image.Index, extensionFor(mimeType))

	data, err := base64.StdEncoding.DecodeString(image.Base64)
	if err != nil {
		o.logger.WarnContext(ctx, "Invalid base64 image data", "index", image.Index, "error", err)

		return hosting.PlaceholderURL(request.Topic, image.Index)
	}

	if o.mediaHost != nil {
		url, err := o.mediaHost.Upload(ctx, filename, mimeType, data)
		if err == nil {
			return url
		}

		o.logger.WarnContext(ctx, "Media host upload failed, falling through",
			"index", image.Index, "error", err)
	}

	if o.objectStore != nil {
		url, err := o.objectStore.Put(ctx, filename, mimeType, data)
		if err == nil {
			return url
		}

		o.logger.WarnContext(ctx, "Object store upload failed, falling through",
			"index", image.Index, "error", err)
	}

	return "data:" + mimeType + ";base64," + image.Base64
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "post"
	}

	return slug
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
