package rebuild

import (
	"bytes"
	"errors"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ebooktools/rechapter/internal/epub"
)

// ContentNode is one block-level element lifted out of a spine file. Source
// is the EPUB-internal path of the file it came from, kept only for asset
// path resolution; it does not imply the node still belongs to that file.
type ContentNode struct {
	Node   *html.Node
	Source string
}

// LinearDocument is the whole book body in reading order: spine order, then
// in-file document order.
type LinearDocument struct {
	Nodes   []ContentNode
	Sources []string // distinct source file paths, spine order
}

// Linearize walks the spine in order and concatenates the body children of
// every restructurable content file into one sequence. Nodes are detached
// from their parsed documents; the sequence owns them afterwards.
func Linearize(wd *epub.Workdir, pkg *epub.Package, opfDir string) (*LinearDocument, error) {
	lin := &LinearDocument{}
	seen := make(map[string]bool)

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := pkg.Item(ref.IDRef)
		if !ok {
			continue
		}
		if !isRestructurable(item) {
			continue
		}

		src := joinOPF(opfDir, item.Href)
		data, err := wd.ReadFile(src)
		if err != nil {
			return nil, &ContentParseError{Path: src, Err: err}
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			return nil, &ContentParseError{Path: src, Err: err}
		}
		body := doc.Find("body").First()
		if body.Length() == 0 {
			return nil, &ContentParseError{Path: src, Err: errors.New("no body element")}
		}

		for _, n := range detachChildren(body.Get(0)) {
			lin.Nodes = append(lin.Nodes, ContentNode{Node: n, Source: src})
		}
		if !seen[src] {
			seen[src] = true
			lin.Sources = append(lin.Sources, src)
		}
	}

	return lin, nil
}

// detachChildren removes and returns the element and non-blank text children
// of body, in document order. Whitespace-only text nodes are dropped; they
// are indentation noise from the source serialization.
func detachChildren(body *html.Node) []*html.Node {
	var nodes []*html.Node
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		keep := c.Type == html.ElementNode ||
			(c.Type == html.TextNode && strings.TrimSpace(c.Data) != "")
		if keep {
			body.RemoveChild(c)
			nodes = append(nodes, c)
		}
		c = next
	}
	return nodes
}

// isRestructurable reports whether a spine item's file is subject to
// re-chaptering. The nav document and the cover page are kept as-is.
func isRestructurable(item epub.ManifestItem) bool {
	if !isXHTML(item.MediaType) {
		return false
	}
	for _, p := range strings.Fields(item.Properties) {
		if p == "nav" {
			return false
		}
	}
	return path.Base(item.Href) != "cover.xhtml"
}

// isXHTML checks if a media type indicates an XHTML content file.
func isXHTML(mediaType string) bool {
	return strings.Contains(mediaType, "html")
}

// joinOPF resolves a manifest href against the OPF directory, yielding an
// EPUB-internal path.
func joinOPF(opfDir, href string) string {
	if opfDir == "" || opfDir == "." {
		return path.Clean(href)
	}
	return path.Join(opfDir, href)
}
