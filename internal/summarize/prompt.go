package summarize

import (
	"fmt"
	"strings"

	"github.com/mergelog/mergelogctl/internal/digest"
)

// maxFilesInPrompt caps the changed-file list included in the prompt so
// giant refactoring PRs do not blow the context window.
const maxFilesInPrompt = 40

const systemPrompt = "You are a release-notes writer. Summarize the pull request below in two to four short " +
	"markdown sentences for other developers: what changed and why it matters. Use bullet points only when the " +
	"change has clearly separable parts. Do not repeat the PR number or title."

// buildPrompt renders one merge record into the user message sent to the
// summarization model.
func buildPrompt(rec digest.MergeRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", rec.Title)
	fmt.Fprintf(&b, "Changes: +%d/-%d lines across %d files\n", rec.Additions, rec.Deletions, len(rec.Files))

	if desc := strings.TrimSpace(rec.Description); desc != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", desc)
	}

	if len(rec.Files) > 0 {
		b.WriteString("\nChanged files:\n")
		for i, f := range rec.Files {
			if i == maxFilesInPrompt {
				fmt.Fprintf(&b, "- and %d more files\n", len(rec.Files)-maxFilesInPrompt)
				break
			}
			fmt.Fprintf(&b, "- %s (+%d/-%d)\n", f.Path, f.Additions, f.Deletions)
		}
	}

	return b.String()
}
