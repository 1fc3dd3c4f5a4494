package generator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pressforge/pressforge/pkg/hosting"
)

// Placeholder token grammar: [IMAGE:<index>], optional single space after the
// colon. Pass 1 handles tokens already inside a src attribute, pass 2 wraps
// the remaining standalone tokens so re-running the transform never
// double-wraps.

var (
	srcTokenRe        = regexp.MustCompile(`src\s*=\s*["']\s*\[IMAGE: ?(\d+)\]\s*["']`)
	standaloneTokenRe = regexp.MustCompile(`\[IMAGE: ?(\d+)\]`)
	imgTagRe          = regexp.MustCompile(`<img\b[^>]*>`)
	imgSrcAttrRe      = regexp.MustCompile(`src\s*=\s*["']([^"']*)["']`)
	loadingAttrRe     = regexp.MustCompile(`loading\s*=`)
	styleAttrRe       = regexp.MustCompile(`style\s*=`)
)

// SEOContext carries the keyword and topic used for synthesized alt text and
// placeholder URLs during placement.
type SEOContext struct {
	PrimaryKeyword string
	Topic          string
}

// PlaceImages substitutes [IMAGE:n] placeholder tokens with resolved URLs and
// normalizes every img tag. The output never contains a literal "[IMAGE:"
// token, and running the transform on its own output is a no-op.
func PlaceImages(content string, imageURLs []string, seoContext SEOContext) string {
	urlFor := func(index int) string {
		if index >= 0 && index < len(imageURLs) && imageURLs[index] != "" {
			return imageURLs[index]
		}

		return hosting.PlaceholderURL(seoContext.Topic, index)
	}

	// Pass 1: tokens inside src attributes of generator-emitted img shells.
	content = srcTokenRe.ReplaceAllStringFunc(content, func(match string) string {
		index := tokenIndex(srcTokenRe, match)

		return fmt.Sprintf(`src="%s"`, urlFor(index))
	})

	// Passes 2 and 3: remaining standalone tokens become full figure blocks;
	// out-of-range indexes resolve to placeholder-service URLs.
	content = standaloneTokenRe.ReplaceAllStringFunc(content, func(match string) string {
		index := tokenIndex(standaloneTokenRe, match)

		return figureBlock(urlFor(index), altText(seoContext.PrimaryKeyword, index))
	})

	// Pass 4: every img tag gets a non-empty src, lazy loading, and a
	// responsive style, including images that never went through tokens.
	content = imgTagRe.ReplaceAllStringFunc(content, func(tag string) string {
		return normalizeImgTag(tag, seoContext.Topic)
	})

	return content
}

func tokenIndex(re *regexp.Regexp, match string) int {
	groups := re.FindStringSubmatch(match)
	if len(groups) < 2 {
		return -1
	}

	index, err := strconv.Atoi(groups[1])
	if err != nil {
		return -1
	}

	return index
}

func altText(primaryKeyword string, index int) string {
	keyword := strings.TrimSpace(primaryKeyword)
	if keyword == "" {
		keyword = "Blog"
	}

	if index == 0 {
		return keyword + " - Featured Image"
	}

	return fmt.Sprintf("%s - Image %d", keyword, index)
}

func figureBlock(url, alt string) string {
	return fmt.Sprintf(
		`<figure><img src="%s" alt="%s" loading="lazy" style="max-width:100%%;height:auto;"><figcaption>%s</figcaption></figure>`,
		url, alt, alt)
}

func normalizeImgTag(tag, topic string) string {
	srcMatch := imgSrcAttrRe.FindStringSubmatch(tag)

	src := ""
	if len(srcMatch) == 2 {
		src = strings.TrimSpace(srcMatch[1])
	}

	if src == "" || src == "undefined" {
		replacement := fmt.Sprintf(`src="%s"`, hosting.PlaceholderURL(topic, 0))
		if len(srcMatch) == 2 {
			tag = imgSrcAttrRe.ReplaceAllString(tag, replacement)
		} else {
			tag = strings.Replace(tag, "<img", "<img "+replacement, 1)
		}
	}

	if !loadingAttrRe.MatchString(tag) {
		tag = strings.Replace(tag, "<img", `<img loading="lazy"`, 1)
	}

	if !styleAttrRe.MatchString(tag) {
		tag = strings.Replace(tag, "<img", `<img style="max-width:100%;height:auto;"`, 1)
	}

	return tag
}
