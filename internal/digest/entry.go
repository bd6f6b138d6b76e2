package digest

import (
	"fmt"
	"regexp"
	"time"
)

// The entry block grammar. Every pattern that reads or writes the rendered
// wire format lives here so the format stays a single contract: the store's
// dedup scan, the extractor's parser and the formatter all share these.
var (
	// headingPattern matches the block heading "## [#123](url) Title" and is
	// anchored to line start so id-shaped text inside summaries never counts.
	headingPattern = regexp.MustCompile(`(?m)^## \[#(\d+)\]\(([^)]*)\) (.*)$`)
	// metadataPattern matches the merged-date/author line below the heading.
	metadataPattern = regexp.MustCompile(`(?m)^\*\*Merged\*\*: (.+?) \| \*\*Author\*\*: \[@([^\]]*)\]\(([^)]*)\)$`)
	// separatorPattern matches the line closing an entry block.
	separatorPattern = regexp.MustCompile(`(?m)^---$`)
)

const (
	// entryDateLayout is the day/month/year form written into metadata lines.
	entryDateLayout = "02/01/2006"
	// unknownAuthor is rendered when the source record carries no author.
	unknownAuthor = "unknown"
	// unknownDate is rendered when the source record carries no merge time.
	unknownDate = "unknown date"
	// entrySeparator closes every rendered block.
	entrySeparator = "---"
)

// Author identifies who merged or authored a change request.
type Author struct {
	// Login is the account name without the "@" prefix.
	Login string
	// URL is the account profile URL.
	URL string
}

// ChangedFile describes one file touched by a change request.
type ChangedFile struct {
	// Path is the repository-relative file path.
	Path string
	// Additions is the number of added lines.
	Additions int
	// Deletions is the number of removed lines.
	Deletions int
}

// MergeRecord is one merged change request as supplied by the fetch client.
type MergeRecord struct {
	// Number is the change-request number, unique within the repository
	// and used as the dedup key throughout the digest.
	Number int
	// Title is the change-request title.
	Title string
	// URL is the canonical change-request URL.
	URL string
	// Description is the change-request body, present on detail fetches.
	Description string
	// MergedAt is the merge instant; nil means not yet merged.
	MergedAt *time.Time
	// Author identifies the change author; nil renders as "unknown".
	Author *Author
	// Additions is the total number of added lines.
	Additions int
	// Deletions is the total number of removed lines.
	Deletions int
	// Files lists the changed files, present on detail fetches.
	Files []ChangedFile
}

// RenderEntry renders one record plus its summary into a self-contained
// block. The summary is inserted verbatim; callers keep it markdown-safe by
// convention, not enforcement.
func RenderEntry(rec MergeRecord, summary string) string {
	date := unknownDate
	if rec.MergedAt != nil {
		date = rec.MergedAt.Format(entryDateLayout)
	}

	login := unknownAuthor
	profile := ""
	if rec.Author != nil && rec.Author.Login != "" {
		login = rec.Author.Login
		profile = rec.Author.URL
	}

	heading := fmt.Sprintf("## [#%d](%s) %s", rec.Number, rec.URL, rec.Title)
	metadata := fmt.Sprintf("**Merged**: %s | **Author**: [@%s](%s)", date, login, profile)

	return heading + "\n\n" + metadata + "\n\n" + summary + "\n\n" + entrySeparator + "\n"
}
