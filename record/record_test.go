package record

import "testing"

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"42 points", 42},
		{"1 point", 1},
		{"312 points", 312}, // non-breaking space
		{"", 0},
		{"no score here", 0},
	}
	for _, tt := range tests {
		if got := ParsePoints(tt.in); got != tt.want {
			t.Errorf("ParsePoints(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseComments(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"7 comments", 7},
		{"1 comment", 1},
		{"128 comments", 128},
		// "discuss" marks an item with no comments yet; it must not be
		// parsed numerically.
		{"discuss", 0},
		{"Discuss", 0},
		{"", 0},
		{"hide", 0},
	}
	for _, tt := range tests {
		if got := ParseComments(tt.in); got != tt.want {
			t.Errorf("ParseComments(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCleanCommentHTML(t *testing.T) {
	// WHAT: Paragraph markup becomes newlines, other tags are stripped,
	// entities unescape.
	// WHY: The API returns comment bodies as HTML; the other strategies
	// read rendered text. Both must normalize to the same plain text.
	in := "<p>First</p><p>Second &amp; <i>third</i></p>"
	want := "\nFirst\nSecond & third"
	if got := CleanCommentHTML(in); got != want {
		t.Errorf("CleanCommentHTML: got %q, want %q", got, want)
	}
}

func TestCleanCommentHTML_Entities(t *testing.T) {
	in := "it&#x27;s &quot;quoted&quot;"
	want := `it's "quoted"`
	if got := CleanCommentHTML(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuild_TrimsTopComment(t *testing.T) {
	r := Build(7, "Title", "https://example.com", 10, 2, "alice", "bob", "\n  some text \n")
	if r.TopCommentText != "some text" {
		t.Errorf("top comment text: got %q", r.TopCommentText)
	}
	if r.PostID != 7 || r.Points != 10 || r.CommentsCount != 2 {
		t.Errorf("fields: got %+v", r)
	}
}
