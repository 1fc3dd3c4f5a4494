package models

// ImageMode selects how the images stage acquires images.
type ImageMode string

const (
	ImageModeAuto    ImageMode = "auto"    // AI generation, one call per prompt
	ImageModeManual  ImageMode = "manual"  // user-supplied images or URLs
	ImageModeEnhance ImageMode = "enhance" // behaves as manual; AI enhancement is a future extension
)

// GeneratedImage is one image attached to a draft. Index is positional and
// must be stable across the array for placeholder substitution to line up.
// A record with empty Base64 and URL is a tolerated per-image failure that
// later resolves to a placeholder URL. Never mutated after creation.
type GeneratedImage struct {
	Index    int    `json:"index"`
	Prompt   string `json:"prompt"`
	Base64   string `json:"base64,omitempty"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url,omitempty"` // external or pre-hosted
}
