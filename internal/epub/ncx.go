package epub

import (
	"encoding/xml"
	"fmt"
)

const nsNCX = "http://www.daisy.org/z3986/2005/ncx/"

// NCX mirrors the legacy navigation control file (toc.ncx).
type NCX struct {
	XMLName xml.Name `xml:"ncx"`
	XMLNS   string   `xml:"xmlns,attr"`
	Version string   `xml:"version,attr"`
	Head    NCXHead  `xml:"head"`
	Title   NCXText  `xml:"docTitle"`
	NavMap  NavMap   `xml:"navMap"`
}

// NCXHead holds the head meta entries (uid, depth and friends).
type NCXHead struct {
	Meta []NCXMeta `xml:"meta"`
}

// NCXMeta is one head meta entry.
type NCXMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// NCXText wraps the <text> child used by docTitle and navLabel.
type NCXText struct {
	Text string `xml:"text"`
}

// NavMap holds the top-level navPoints.
type NavMap struct {
	NavPoints []NavPoint `xml:"navPoint"`
}

// NavPoint is one TOC entry. Nested points survive parsing, but the rebuild
// always writes a flat list.
type NavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     NCXText    `xml:"navLabel"`
	Content   NCXContent `xml:"content"`
	Children  []NavPoint `xml:"navPoint"`
}

// NCXContent is the target reference of a navPoint.
type NCXContent struct {
	Src string `xml:"src,attr"`
}

// ParseNCX parses a legacy navigation control file.
func ParseNCX(data []byte) (*NCX, error) {
	var n NCX
	if err := xml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
	}
	return &n, nil
}

// WriteNCX serializes the NCX with an XML declaration.
func WriteNCX(n *NCX) ([]byte, error) {
	n.XMLNS = nsNCX
	if n.Version == "" {
		n.Version = "2005-1"
	}

	out, err := xml.MarshalIndent(n, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize NCX: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
