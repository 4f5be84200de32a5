package scrape

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// listingItem holds the raw per-row extraction from the front page before
// normalization. Count fields stay as free-form text; record.ParsePoints
// and record.ParseComments interpret them.
type listingItem struct {
	id           int64
	title        string
	url          string
	author       string
	pointsText   string
	commentsText string
}

// parseListing walks the front-page DOM and extracts one listingItem per
// story row. A row missing its numeric id or title anchor is a structure
// change and surfaces as an error; optional metadata degrades to "".
func parseListing(doc *html.Node) ([]listingItem, error) {
	rows := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "tr") && hasClass(n, "athing")
	})

	items := make([]listingItem, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(attrVal(row, "id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scrape: listing row without numeric id: %w", err)
		}

		titleline := findFirst(row, func(n *html.Node) bool { return hasClass(n, "titleline") })
		var anchor *html.Node
		if titleline != nil {
			anchor = findFirst(titleline, func(n *html.Node) bool { return isElement(n, "a") })
		}
		if anchor == nil {
			return nil, fmt.Errorf("scrape: listing row %d has no title anchor", id)
		}

		it := listingItem{
			id:    id,
			title: nodeText(anchor),
			url:   attrVal(anchor, "href"),
		}

		// The metadata lives in the next <tr>'s subtext cell.
		if meta := nextElement(row, "tr"); meta != nil {
			if score := findFirst(meta, func(n *html.Node) bool { return hasClass(n, "score") }); score != nil {
				it.pointsText = nodeText(score)
			}
			if user := findFirst(meta, func(n *html.Node) bool { return hasClass(n, "hnuser") }); user != nil {
				it.author = nodeText(user)
			}
			if subtext := findFirst(meta, func(n *html.Node) bool { return hasClass(n, "subtext") }); subtext != nil {
				links := findAll(subtext, func(n *html.Node) bool { return isElement(n, "a") })
				if len(links) > 0 {
					it.commentsText = nodeText(links[len(links)-1])
				}
			}
		}

		items = append(items, it)
	}
	return items, nil
}

// parseFirstComment extracts the first top-level comment's author and
// text from a discussion page. Missing elements yield empty strings.
func parseFirstComment(doc *html.Node) (author, text string) {
	first := findFirst(doc, func(n *html.Node) bool { return hasClass(n, "comtr") })
	if first == nil {
		return "", ""
	}
	if user := findFirst(first, func(n *html.Node) bool { return hasClass(n, "hnuser") }); user != nil {
		author = nodeText(user)
	}
	if body := findFirst(first, func(n *html.Node) bool { return hasClass(n, "commtext") }); body != nil {
		text = nodeText(body)
	}
	return author, text
}

// resolveRef resolves href against base, tolerating relative discussion
// links like "item?id=123".
func resolveRef(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	r, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(r).String()
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, f := range strings.Fields(attrVal(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first node under n (excluding n) matching pred,
// depth-first in document order.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// nextElement returns the next sibling element with the given tag.
func nextElement(n *html.Node, tag string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if isElement(s, tag) {
			return s
		}
	}
	return nil
}

// nodeText concatenates the text content under n, skipping script and
// style, trimmed at the edges.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if isElement(n, "script") || isElement(n, "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
