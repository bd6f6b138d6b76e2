package githubapi

import (
	"time"

	"github.com/mergelog/mergelogctl/internal/digest"
)

// pullResponse is the REST wire shape of a pull request.
type pullResponse struct {
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	HTMLURL   string        `json:"html_url"`
	MergedAt  *time.Time    `json:"merged_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	User      *userResponse `json:"user"`
	Additions int           `json:"additions"`
	Deletions int           `json:"deletions"`
}

// userResponse is the REST wire shape of an account reference.
type userResponse struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// fileResponse is the REST wire shape of one changed file.
type fileResponse struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// toRecord converts the wire shape into the digest's merge record.
func (p pullResponse) toRecord() digest.MergeRecord {
	rec := digest.MergeRecord{
		Number:      p.Number,
		Title:       p.Title,
		URL:         p.HTMLURL,
		Description: p.Body,
		MergedAt:    p.MergedAt,
		Additions:   p.Additions,
		Deletions:   p.Deletions,
	}
	if p.User != nil {
		rec.Author = &digest.Author{Login: p.User.Login, URL: p.User.HTMLURL}
	}
	return rec
}

// errorResponse is the REST wire shape of an API error payload.
type errorResponse struct {
	Message string `json:"message"`
}
