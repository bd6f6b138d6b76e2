package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLFromMarkdownHeadingsAndParagraphs(t *testing.T) {
	got := htmlFromMarkdown("# Summary\n\nFirst line.\nSecond line.")
	assert.Equal(t, "<h1>Summary</h1>\n<p>First line.<br />Second line.</p>", got)
}

func TestHTMLFromMarkdownWrapsListRuns(t *testing.T) {
	got := htmlFromMarkdown("Changes:\n\n- one\n- two `x`")
	assert.Equal(t, "<p>Changes:</p>\n<ul>\n<li>one</li>\n<li>two <code>x</code></li>\n</ul>", got)
}

func TestHTMLFromMarkdownCodeFenceBeforeInlineCode(t *testing.T) {
	got := htmlFromMarkdown("```go\nfmt.Println(1)\n```")
	assert.Equal(t, "<pre><code>fmt.Println(1)\n</code></pre>", got)
}

func TestHTMLFromMarkdownBoldAndInlineCode(t *testing.T) {
	got := htmlFromMarkdown("Adds **retry** logic around `client.Do`.")
	assert.Equal(t, "<p>Adds <strong>retry</strong> logic around <code>client.Do</code>.</p>", got)
}

func TestHTMLFromMarkdownHeadingLevels(t *testing.T) {
	got := htmlFromMarkdown("### Details\n\n## Overview")
	assert.Equal(t, "<h3>Details</h3>\n<h2>Overview</h2>", got)
}
