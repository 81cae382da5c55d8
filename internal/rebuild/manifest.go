package rebuild

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ebooktools/rechapter/internal/epub"
)

// NavigationEntry links one chapter (or the cover page) into both the nav
// document and the NCX. The two always share the same list, in the same
// order.
type NavigationEntry struct {
	Title string
	Href  string // relative to the OPF directory
}

// Regenerator rewrites the three interlocking manifests — package document,
// navigation document and NCX — so they reference the new chapter files.
type Regenerator struct {
	wd     *epub.Workdir
	pkg    *epub.Package
	opfDir string
	logger *slog.Logger
}

// NewRegenerator creates a regenerator over the workdir's package document.
func NewRegenerator(wd *epub.Workdir, pkg *epub.Package, opfDir string, logger *slog.Logger) *Regenerator {
	return &Regenerator{wd: wd, pkg: pkg, opfDir: opfDir, logger: logger}
}

// RewritePackage replaces the superseded content entries in the manifest
// and spine with one entry per chapter, in place. Chapter entries take the
// position of the first removed entry; everything else keeps its id and
// relative order. superseded holds the EPUB-internal paths of consumed
// content files.
func (r *Regenerator) RewritePackage(chapters []Chapter, superseded map[string]bool) {
	mediaType := r.contentMediaType(superseded)

	items := make([]epub.ManifestItem, 0, len(r.pkg.Manifest.Items)+len(chapters))
	removedIDs := make(map[string]bool)
	inserted := false
	for _, it := range r.pkg.Manifest.Items {
		if superseded[joinOPF(r.opfDir, it.Href)] {
			removedIDs[it.ID] = true
			if !inserted {
				inserted = true
				for _, ch := range chapters {
					items = append(items, epub.ManifestItem{
						ID:        ch.ID,
						Href:      ch.FileName,
						MediaType: mediaType,
					})
				}
			}
			continue
		}
		items = append(items, it)
	}
	if !inserted {
		for _, ch := range chapters {
			items = append(items, epub.ManifestItem{ID: ch.ID, Href: ch.FileName, MediaType: mediaType})
		}
	}
	r.pkg.Manifest.Items = items

	refs := make([]epub.ItemRef, 0, len(r.pkg.Spine.ItemRefs)+len(chapters))
	inserted = false
	for _, ref := range r.pkg.Spine.ItemRefs {
		if removedIDs[ref.IDRef] {
			if !inserted {
				inserted = true
				for _, ch := range chapters {
					refs = append(refs, epub.ItemRef{IDRef: ch.ID})
				}
			}
			continue
		}
		refs = append(refs, ref)
	}
	if !inserted {
		for _, ch := range chapters {
			refs = append(refs, epub.ItemRef{IDRef: ch.ID})
		}
	}
	r.pkg.Spine.ItemRefs = refs
}

// contentMediaType returns the media type of the superseded content files,
// falling back to the standard XHTML type.
func (r *Regenerator) contentMediaType(superseded map[string]bool) string {
	for _, it := range r.pkg.Manifest.Items {
		if superseded[joinOPF(r.opfDir, it.Href)] {
			return it.MediaType
		}
	}
	return "application/xhtml+xml"
}

// NavigationEntries builds the shared entry list: a Cover entry when the
// book has a cover page, then one entry per chapter in chapter order.
func (r *Regenerator) NavigationEntries(chapters []Chapter) []NavigationEntry {
	var entries []NavigationEntry
	if cover, ok := r.coverPage(); ok {
		entries = append(entries, NavigationEntry{Title: "Cover", Href: cover})
	}
	for _, ch := range chapters {
		entries = append(entries, NavigationEntry{Title: ch.Title, Href: ch.FileName})
	}
	return entries
}

func (r *Regenerator) coverPage() (string, bool) {
	for _, it := range r.pkg.Manifest.Items {
		if path.Base(it.Href) == "cover.xhtml" {
			return it.Href, true
		}
	}
	return "", false
}

// RewriteNav replaces the toc list of the navigation document with the
// given entries. Books without a nav document are left alone.
func (r *Regenerator) RewriteNav(entries []NavigationEntry) error {
	navItem, ok := r.navItem()
	if !ok {
		r.logger.Warn("no navigation document in manifest, skipping")
		return nil
	}
	navPath := joinOPF(r.opfDir, navItem.Href)

	data, err := r.wd.ReadFile(navPath)
	if err != nil {
		return &WriteError{Path: navPath, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return &ContentParseError{Path: navPath, Err: err}
	}

	var toc *goquery.Selection
	doc.Find("nav").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if typ, _ := s.Attr("epub:type"); hasToken(typ, "toc") {
			toc = s
			return false
		}
		return true
	})
	if toc == nil {
		r.logger.Warn("nav document has no toc element, skipping", "path", navPath)
		return nil
	}

	ol := toc.Find("ol").First()
	if ol.Length() == 0 {
		toc.AppendHtml("<ol></ol>")
		ol = toc.Find("ol").First()
	}
	ol.Empty()

	navDir := path.Dir(navPath)
	for range entries {
		ol.AppendHtml("<li><a></a></li>")
	}
	ol.Find("a").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("href", epub.RelPath(navDir, joinOPF(r.opfDir, entries[i].Href)))
		s.SetText(entries[i].Title)
	})

	var sb strings.Builder
	if err := html.Render(&sb, doc.Get(0)); err != nil {
		return fmt.Errorf("failed to render navigation document: %w", err)
	}
	if err := r.wd.WriteFile(navPath, []byte(sb.String())); err != nil {
		return &WriteError{Path: navPath, Err: err}
	}
	return nil
}

// RewriteNCX rebuilds the navMap with sequentially numbered navPoints.
// Books without an NCX are left alone; an unreadable NCX is regenerated
// from scratch rather than failing the rebuild.
func (r *Regenerator) RewriteNCX(entries []NavigationEntry) error {
	ncxItem, ok := r.ncxItem()
	if !ok {
		r.logger.Warn("no NCX in manifest, skipping")
		return nil
	}
	ncxPath := joinOPF(r.opfDir, ncxItem.Href)

	var ncx *epub.NCX
	if data, err := r.wd.ReadFile(ncxPath); err == nil {
		if ncx, err = epub.ParseNCX(data); err != nil {
			r.logger.Warn("failed to parse NCX, regenerating", "path", ncxPath, "error", err)
			ncx = nil
		}
	}
	if ncx == nil {
		ncx = &epub.NCX{Title: epub.NCXText{Text: r.pkg.Title()}}
	}

	ncxDir := path.Dir(ncxPath)
	points := make([]epub.NavPoint, 0, len(entries))
	for i, e := range entries {
		points = append(points, epub.NavPoint{
			ID:        fmt.Sprintf("navPoint-%d", i+1),
			PlayOrder: i + 1,
			Label:     epub.NCXText{Text: e.Title},
			Content:   epub.NCXContent{Src: epub.RelPath(ncxDir, joinOPF(r.opfDir, e.Href))},
		})
	}
	ncx.NavMap.NavPoints = points

	out, err := epub.WriteNCX(ncx)
	if err != nil {
		return err
	}
	if err := r.wd.WriteFile(ncxPath, out); err != nil {
		return &WriteError{Path: ncxPath, Err: err}
	}
	return nil
}

// WriteOPF serializes the updated package document to its original path.
func (r *Regenerator) WriteOPF(opfPath string) error {
	out, err := epub.WritePackage(r.pkg)
	if err != nil {
		return err
	}
	if err := r.wd.WriteFile(opfPath, out); err != nil {
		return &WriteError{Path: opfPath, Err: err}
	}
	return nil
}

func (r *Regenerator) navItem() (epub.ManifestItem, bool) {
	for _, it := range r.pkg.Manifest.Items {
		if hasToken(it.Properties, "nav") {
			return it, true
		}
	}
	return epub.ManifestItem{}, false
}

func (r *Regenerator) ncxItem() (epub.ManifestItem, bool) {
	if r.pkg.Spine.Toc != "" {
		if it, ok := r.pkg.Item(r.pkg.Spine.Toc); ok {
			return it, true
		}
	}
	for _, it := range r.pkg.Manifest.Items {
		if it.MediaType == "application/x-dtbncx+xml" {
			return it, true
		}
	}
	return epub.ManifestItem{}, false
}

// hasToken checks a space-separated token list for the given token.
func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if t == token {
			return true
		}
	}
	return false
}
