package settings

import (
	"regexp"
	"strings"
)

// ForumGuidelinesConsentPrompt is the text a forum channel's guidelines must
// contain before forum-post consent collection may be enabled. Matching is
// performed on normalized text, so surrounding formatting and whitespace in
// the guidelines do not matter.
const ForumGuidelinesConsentPrompt = "This server uses Threadkeep to index content on the web. " +
	"By posting in this channel your messages will be publicly displayed."

var markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

// normalizeGuidelineText reduces guideline or prompt text to a canonical
// form: markdown links collapse to their label, then every character that is
// not an ASCII letter or digit is dropped. Emphasis, code and heading
// markers disappear in the second step.
func normalizeGuidelineText(text string) string {
	text = markdownLinkPattern.ReplaceAllString(text, "$1")

	var b strings.Builder

	b.Grow(len(text))

	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// GuidelinesContainConsentPrompt checks whether the normalized guideline
// text contains the normalized consent prompt. The check is case-sensitive
// and an empty topic always fails.
func GuidelinesContainConsentPrompt(guidelines string) bool {
	normalized := normalizeGuidelineText(guidelines)
	if normalized == "" {
		return false
	}

	return strings.Contains(normalized, normalizeGuidelineText(ForumGuidelinesConsentPrompt))
}
