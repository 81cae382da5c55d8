package rebuild

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ebooktools/rechapter/internal/epub"
)

// Emitter serializes chapters into standalone XHTML documents placed in the
// OPF directory, rewriting asset references so they stay valid from there.
type Emitter struct {
	pkg    *epub.Package
	opfDir string
	assets map[string]bool // EPUB-internal paths of all manifest entries
	logger *slog.Logger
}

// NewEmitter creates an emitter for the given package. The manifest is
// snapshotted before any regeneration, so asset lookups see the original
// entries.
func NewEmitter(pkg *epub.Package, opfDir string, logger *slog.Logger) *Emitter {
	assets := make(map[string]bool, len(pkg.Manifest.Items))
	for _, it := range pkg.Manifest.Items {
		assets[joinOPF(opfDir, it.Href)] = true
	}
	return &Emitter{pkg: pkg, opfDir: opfDir, assets: assets, logger: logger}
}

// Emit renders one chapter as a standalone XHTML document.
func (e *Emitter) Emit(ch Chapter) ([]byte, error) {
	for _, cn := range ch.Nodes {
		e.rewriteAssetRefs(cn)
	}

	doc := e.documentShell(ch.Title)
	body := findElement(doc, "body")
	for _, cn := range ch.Nodes {
		body.AppendChild(cn.Node)
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return nil, fmt.Errorf("failed to render chapter %s: %w", ch.FileName, err)
	}
	return []byte(sb.String()), nil
}

// documentShell builds the doctype/html/head skeleton for a chapter. The
// head carries the chapter title and a link per stylesheet in the manifest.
func (e *Emitter) documentShell(title string) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element("html")
	root.Attr = []html.Attribute{
		{Key: "xmlns", Val: "http://www.w3.org/1999/xhtml"},
		{Key: "xmlns:epub", Val: "http://www.idpf.org/2007/ops"},
	}
	doc.AppendChild(root)

	head := element("head")
	titleEl := element("title")
	titleEl.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(titleEl)

	for _, it := range e.pkg.Manifest.Items {
		if it.MediaType != "text/css" {
			continue
		}
		link := element("link")
		link.Attr = []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "type", Val: "text/css"},
			{Key: "href", Val: it.Href},
		}
		head.AppendChild(link)
	}
	root.AppendChild(head)

	root.AppendChild(element("body"))
	return doc
}

// assetAttrs maps element names to the attribute carrying an asset
// reference. The svg image element's xlink:href is parsed with Key "href"
// and Namespace "xlink", so the plain href lookup covers it.
var assetAttrs = map[string]string{
	"img":    "src",
	"source": "src",
	"image":  "href",
	"link":   "href",
}

// rewriteAssetRefs recomputes the relative asset paths inside one node for
// the chapter's new location.
func (e *Emitter) rewriteAssetRefs(cn ContentNode) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := assetAttrs[n.Data]; ok {
				e.rewriteAttr(n, attr, cn.Source)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(cn.Node)
}

// rewriteAttr rewrites one reference attribute. References that do not
// resolve to a manifest entry are logged and left untouched; a missing
// asset must not abort the rebuild.
func (e *Emitter) rewriteAttr(n *html.Node, key, source string) {
	for i, a := range n.Attr {
		if a.Key != key || a.Val == "" {
			continue
		}
		if strings.Contains(a.Val, "://") || strings.HasPrefix(a.Val, "#") || strings.HasPrefix(a.Val, "data:") {
			continue
		}
		abs := epub.ResolveRelative(source, a.Val)
		if abs == "" || !e.assets[abs] {
			err := &AssetResolutionError{Ref: a.Val, Source: source}
			e.logger.Warn("leaving asset reference unchanged", "error", err)
			continue
		}
		n.Attr[i].Val = epub.RelPath(e.opfDir, abs)
	}
}

func element(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// findElement returns the first element named tag in depth-first order.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
