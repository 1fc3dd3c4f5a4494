package models

// ImagePlacement says where a section image goes relative to its section text.
type ImagePlacement string

const (
	ImagePlacementAfter  ImagePlacement = "after"
	ImagePlacementWithin ImagePlacement = "within"
)

// OutlineIntroduction is the planned opening of a post.
type OutlineIntroduction struct {
	Hook        string   `json:"hook"`
	KeyPoints   []string `json:"key_points"`
	ImagePrompt string   `json:"image_prompt"`
}

// OutlineSection is one planned body section.
type OutlineSection struct {
	Title          string         `json:"title"           validate:"required"`
	KeyPoints      []string       `json:"key_points"`
	ImagePrompt    string         `json:"image_prompt"`
	ImagePlacement ImagePlacement `json:"image_placement"`
}

// OutlineConclusion closes the post.
type OutlineConclusion struct {
	Summary      string `json:"summary"`
	CallToAction string `json:"call_to_action"`
}

// OutlineSEO carries the keyword and meta targets the outline was planned for.
type OutlineSEO struct {
	PrimaryKeyword    string   `json:"primary_keyword"`
	SecondaryKeywords []string `json:"secondary_keywords"`
	MetaTitle         string   `json:"meta_title"`
	MetaDescription   string   `json:"meta_description"`
}

// BlogOutline is the structured plan produced before full content is written.
// It is created once per generation request and immutable thereafter.
type BlogOutline struct {
	BlogTitle    string              `json:"blog_title" validate:"required"`
	Introduction OutlineIntroduction `json:"introduction"`
	Sections     []OutlineSection    `json:"sections"   validate:"required,min=1"`
	Conclusion   OutlineConclusion   `json:"conclusion"`
	SEO          OutlineSEO          `json:"seo"`
}

// ImagePrompts returns the ordered image prompts of the outline: the
// introduction (hero) prompt first, then one per section that has one. The
// order defines the positional index used by placeholder substitution.
func (o *BlogOutline) ImagePrompts() []string {
	prompts := make([]string, 0, len(o.Sections)+1)
	if o.Introduction.ImagePrompt != "" {
		prompts = append(prompts, o.Introduction.ImagePrompt)
	}

	for _, section := range o.Sections {
		if section.ImagePrompt != "" {
			prompts = append(prompts, section.ImagePrompt)
		}
	}

	return prompts
}
