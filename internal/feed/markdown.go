package feed

import (
	"regexp"
	"strings"
)

// The summary markup is converted to feed HTML by ordered textual
// substitutions rather than a markdown parser: summaries only ever use the
// lightweight subset below and the substitution order is part of the
// contract (code fences before inline code, list items before wrapping).
var (
	h3Pattern         = regexp.MustCompile(`(?m)^### (.+)$`)
	h2Pattern         = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Pattern         = regexp.MustCompile(`(?m)^# (.+)$`)
	fencePattern      = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")
	inlineCodePattern = regexp.MustCompile("`([^`\n]+)`")
	boldPattern       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	bulletPattern     = regexp.MustCompile(`(?m)^[-*] (.+)$`)
	listRunPattern    = regexp.MustCompile(`(?s)(<li>.*?</li>)(\n<li>.*?</li>)*`)
)

// htmlFromMarkdown converts a summary's lightweight markup into feed HTML.
func htmlFromMarkdown(md string) string {
	out := strings.TrimSpace(md)

	out = h3Pattern.ReplaceAllString(out, "<h3>$1</h3>")
	out = h2Pattern.ReplaceAllString(out, "<h2>$1</h2>")
	out = h1Pattern.ReplaceAllString(out, "<h1>$1</h1>")
	out = fencePattern.ReplaceAllString(out, "<pre><code>$1</code></pre>")
	out = inlineCodePattern.ReplaceAllString(out, "<code>$1</code>")
	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = bulletPattern.ReplaceAllString(out, "<li>$1</li>")
	out = listRunPattern.ReplaceAllStringFunc(out, func(run string) string {
		return "<ul>\n" + run + "\n</ul>"
	})

	paragraphs := strings.Split(out, "\n\n")
	for i, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// Block-level elements stand on their own; plain text becomes a
		// paragraph with single newlines turned into line breaks.
		if strings.HasPrefix(p, "<h") || strings.HasPrefix(p, "<ul") || strings.HasPrefix(p, "<pre") {
			paragraphs[i] = p
			continue
		}
		paragraphs[i] = "<p>" + strings.ReplaceAll(p, "\n", "<br />") + "</p>"
	}

	return strings.Join(paragraphs, "\n")
}
