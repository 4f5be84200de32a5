// Package record defines the canonical content-item schema shared by all
// scraping strategies and the normalization helpers that map free-form
// site text onto it.
package record

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Record is one normalized front-page item. Never mutated after Build.
type Record struct {
	PostID           int64  `json:"post_id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	Points           int    `json:"points"`
	CommentsCount    int    `json:"comments_count"`
	Author           string `json:"author"`
	TopCommentAuthor string `json:"top_comment_author"`
	TopCommentText   string `json:"top_comment_text"`
}

var (
	// The site separates counts from labels with a regular or
	// non-breaking space; Go's \s does not cover U+00A0.
	pointsRE   = regexp.MustCompile(`(\d+)[\s\x{00A0}]+points?`)
	commentsRE = regexp.MustCompile(`(\d+)[\s\x{00A0}]+comments?`)

	// stripPolicy removes all markup, leaving text content only.
	stripPolicy = bluemonday.StrictPolicy()
)

// Build assembles a Record, trimming the top-comment text.
func Build(postID int64, title, url string, points, commentsCount int, author, topAuthor, topText string) Record {
	return Record{
		PostID:           postID,
		Title:            title,
		URL:              url,
		Points:           points,
		CommentsCount:    commentsCount,
		Author:           author,
		TopCommentAuthor: topAuthor,
		TopCommentText:   strings.TrimSpace(topText),
	}
}

// ParsePoints extracts the numeric score from text like "42 points".
// Absent or non-matching text yields 0.
func ParsePoints(text string) int {
	m := pointsRE.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return atoi(m[1])
}

// ParseComments extracts the comment count from text like "7 comments".
// The "discuss" label means the item has no comments yet and yields 0,
// as does absent or non-matching text.
func ParseComments(text string) int {
	if strings.Contains(strings.ToLower(text), "discuss") {
		return 0
	}
	m := commentsRE.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return atoi(m[1])
}

// CleanCommentHTML flattens comment markup to plain text: paragraph tags
// become newlines, all other tags are stripped, entities are unescaped.
func CleanCommentHTML(s string) string {
	s = strings.ReplaceAll(s, "<p>", "\n")
	s = strings.ReplaceAll(s, "</p>", "")
	s = stripPolicy.Sanitize(s)
	return html.UnescapeString(s)
}

// atoi parses digits already validated by the regexes above.
func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
