package rebuild

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// parseNodes parses a body fragment and returns its detached top-level
// nodes, tagged with the given source path.
func parseNodes(t *testing.T, source, body string) []ContentNode {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("failed to parse fragment: %v", err)
	}
	b := findElement(doc, "body")
	if b == nil {
		t.Fatal("no body in parsed fragment")
	}

	var nodes []ContentNode
	for _, n := range detachChildren(b) {
		nodes = append(nodes, ContentNode{Node: n, Source: source})
	}
	return nodes
}

func linearDoc(nodes []ContentNode) *LinearDocument {
	lin := &LinearDocument{Nodes: nodes}
	seen := make(map[string]bool)
	for _, cn := range nodes {
		if !seen[cn.Source] {
			seen[cn.Source] = true
			lin.Sources = append(lin.Sources, cn.Source)
		}
	}
	return lin
}

func chapterTitles(chapters []Chapter) []string {
	titles := make([]string, len(chapters))
	for i, ch := range chapters {
		titles[i] = ch.Title
	}
	return titles
}

func TestSegment_PreambleAndBoundaries(t *testing.T) {
	nodes := parseNodes(t, "text/part1.xhtml",
		`<p>Preface text</p><h1>Alpha</h1><p>a</p><h1>Beta</h1><p>b</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "Fallback")
	want := []string{"Preamble", "Alpha", "Beta"}
	got := chapterTitles(chapters)
	if len(got) != len(want) {
		t.Fatalf("chapter count = %d (%v), want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chapter %d title = %q, want %q", i, got[i], want[i])
		}
	}

	if len(chapters[0].Nodes) != 1 {
		t.Errorf("preamble node count = %d, want 1", len(chapters[0].Nodes))
	}
	if len(chapters[1].Nodes) != 2 {
		t.Errorf("Alpha node count = %d, want 2", len(chapters[1].Nodes))
	}
	if chapters[1].Nodes[0].Node.Data != "h1" {
		t.Errorf("Alpha first node = %q, want the boundary heading", chapters[1].Nodes[0].Node.Data)
	}

	if chapters[0].ID != "chapter01" || chapters[0].FileName != "chapter01.xhtml" {
		t.Errorf("chapter 0 naming = %s / %s, want chapter01 / chapter01.xhtml", chapters[0].ID, chapters[0].FileName)
	}
	if chapters[2].FileName != "chapter03.xhtml" {
		t.Errorf("chapter 2 file = %s, want chapter03.xhtml", chapters[2].FileName)
	}
}

func TestSegment_NoPreamble(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml", `<h1>Alpha</h1><p>a</p><h1>Beta</h1><p>b</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "")
	got := chapterTitles(chapters)
	if len(got) != 2 || got[0] != "Alpha" || got[1] != "Beta" {
		t.Errorf("chapters = %v, want [Alpha Beta]", got)
	}
}

func TestSegment_NoBoundaries(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml", `<p>one</p><p>two</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "My Book")
	if len(chapters) != 1 {
		t.Fatalf("chapter count = %d, want 1", len(chapters))
	}
	if chapters[0].Title != "My Book" {
		t.Errorf("title = %q, want %q", chapters[0].Title, "My Book")
	}
	if len(chapters[0].Nodes) != 2 {
		t.Errorf("node count = %d, want 2", len(chapters[0].Nodes))
	}
}

func TestSegment_NoBoundariesNoTitle(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml", `<p>one</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "")
	if len(chapters) != 1 || chapters[0].Title != "Chapter 1" {
		t.Errorf("chapters = %v, want one chapter titled Chapter 1", chapterTitles(chapters))
	}
}

func TestSegment_HeadingInsideContainer(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml",
		`<p>intro</p><div><h1>Wrapped</h1><p>body</p></div><p>more</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "")
	got := chapterTitles(chapters)
	if len(got) != 2 || got[0] != "Preamble" || got[1] != "Wrapped" {
		t.Errorf("chapters = %v, want [Preamble Wrapped]", got)
	}
	// the div and the trailing paragraph belong to the Wrapped chapter
	if len(chapters[1].Nodes) != 2 {
		t.Errorf("Wrapped node count = %d, want 2", len(chapters[1].Nodes))
	}
}

func TestSegment_DeepHeadingIsNotBoundary(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml",
		`<div><section><h1>Too Deep</h1></section></div><p>text</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "Flat")
	if len(chapters) != 1 || chapters[0].Title != "Flat" {
		t.Errorf("chapters = %v, want single Flat chapter", chapterTitles(chapters))
	}
}

func TestSegment_MultipleHeadingsOneContainer(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml",
		`<div><h1>First</h1><h1>Second</h1></div><p>text</p>`)

	chapters := Segment(linearDoc(nodes), "h1", "")
	if len(chapters) != 1 {
		t.Fatalf("chapter count = %d, want 1", len(chapters))
	}
	if chapters[0].Title != "First" {
		t.Errorf("title = %q, want %q", chapters[0].Title, "First")
	}
}

func TestSegment_HeadingLevel(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml",
		`<h1>Part I</h1><h2>One</h2><p>a</p><h2>Two</h2><p>b</p>`)

	chapters := Segment(linearDoc(nodes), "h2", "")
	got := chapterTitles(chapters)
	if len(got) != 3 || got[0] != "Preamble" || got[1] != "One" || got[2] != "Two" {
		t.Errorf("chapters = %v, want [Preamble One Two]", got)
	}
}

func TestSegment_TitleWhitespaceCollapsed(t *testing.T) {
	nodes := parseNodes(t, "ch.xhtml",
		"<h1>  A\n\t  <em>Curious</em>   Tale  </h1><p>x</p>")

	chapters := Segment(linearDoc(nodes), "h1", "")
	if len(chapters) != 1 {
		t.Fatalf("chapter count = %d, want 1", len(chapters))
	}
	if chapters[0].Title != "A Curious Tale" {
		t.Errorf("title = %q, want %q", chapters[0].Title, "A Curious Tale")
	}
}

func TestSegment_Empty(t *testing.T) {
	if chapters := Segment(&LinearDocument{}, "h1", "x"); chapters != nil {
		t.Errorf("Segment of empty document = %v, want nil", chapterTitles(chapters))
	}
}
