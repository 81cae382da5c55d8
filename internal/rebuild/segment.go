package rebuild

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Chapter is one re-split chapter: a contiguous slice of the linear
// document. Chapters never overlap and their concatenation reproduces the
// input sequence.
type Chapter struct {
	Title    string
	ID       string // chapterNN
	FileName string // chapterNN.xhtml
	Nodes    []ContentNode
}

// Segment cuts the linear document at heading boundaries. headingTag is the
// boundary element name, e.g. "h1".
//
// Content before the first boundary becomes a "Preamble" chapter when
// non-empty. Each boundary opens a chapter titled from its heading text,
// with the boundary node as the chapter's first node. A document with no
// boundaries at all becomes a single chapter titled fallbackTitle, or
// "Chapter 1" when that is empty.
func Segment(lin *LinearDocument, headingTag, fallbackTitle string) []Chapter {
	var chapters []Chapter
	var open []ContentNode
	openTitle := ""
	inChapter := false

	flush := func() {
		if inChapter {
			chapters = append(chapters, Chapter{Title: openTitle, Nodes: open})
		} else if len(open) > 0 {
			chapters = append(chapters, Chapter{Title: "Preamble", Nodes: open})
		}
		open = nil
	}

	for _, cn := range lin.Nodes {
		if h := boundaryHeading(cn.Node, headingTag); h != nil {
			flush()
			inChapter = true
			openTitle = headingTitle(h)
			open = []ContentNode{cn}
			continue
		}
		open = append(open, cn)
	}
	flush()

	if len(chapters) == 0 {
		return nil
	}
	if !inChapter {
		title := fallbackTitle
		if title == "" {
			title = "Chapter 1"
		}
		chapters[0].Title = title
	}

	for i := range chapters {
		chapters[i].ID = fmt.Sprintf("chapter%02d", i+1)
		chapters[i].FileName = chapters[i].ID + ".xhtml"
	}
	return chapters
}

// boundaryHeading returns the heading that makes n a chapter boundary, or
// nil. A node is a boundary when it is the heading itself or holds one as a
// direct child; deeper headings do not split. A container with several
// eligible headings counts as one boundary at the container's position.
func boundaryHeading(n *html.Node, headingTag string) *html.Node {
	if n.Type != html.ElementNode {
		return nil
	}
	if n.Data == headingTag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == headingTag {
			return c
		}
	}
	return nil
}

// headingTitle extracts the heading's text content, trimmed and with runs of
// whitespace collapsed.
func headingTitle(h *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h)
	return strings.Join(strings.Fields(sb.String()), " ")
}
