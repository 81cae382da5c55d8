package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	nsOPF = "http://www.idpf.org/2007/opf"
	nsDC  = "http://purl.org/dc/elements/1.1/"
)

// Package represents the OPF package document. The XML mapping round-trips:
// metadata and guide content is preserved verbatim (innerxml) while the
// manifest and spine are fully structured so the rebuild can rewrite them.
type Package struct {
	XMLName          xml.Name `xml:"package"`
	XMLNS            string   `xml:"xmlns,attr,omitempty"`
	Version          string   `xml:"version,attr"`
	UniqueIdentifier string   `xml:"unique-identifier,attr,omitempty"`
	Prefix           string   `xml:"prefix,attr,omitempty"`

	Metadata Metadata `xml:"metadata"`
	Manifest Manifest `xml:"manifest"`
	Spine    Spine    `xml:"spine"`
	Guide    *Guide   `xml:"guide,omitempty"`
}

// Metadata carries the metadata block opaquely; the rebuild never edits it.
type Metadata struct {
	XMLNSDC  string `xml:"xmlns:dc,attr,omitempty"`
	XMLNSOPF string `xml:"xmlns:opf,attr,omitempty"`
	InnerXML string `xml:",innerxml"`
}

// Manifest lists all package resources in document order.
type Manifest struct {
	Items []ManifestItem `xml:"item"`
}

// ManifestItem is one manifest entry. Href is relative to the OPF directory.
type ManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
	Fallback   string `xml:"fallback,attr,omitempty"`
}

// Spine defines the linear reading order.
type Spine struct {
	Toc                      string    `xml:"toc,attr,omitempty"`
	PageProgressionDirection string    `xml:"page-progression-direction,attr,omitempty"`
	ItemRefs                 []ItemRef `xml:"itemref"`
}

// ItemRef is one spine reference into the manifest.
type ItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr,omitempty"`
}

// Guide is the legacy EPUB 2 guide block, passed through verbatim.
type Guide struct {
	InnerXML string `xml:",innerxml"`
}

// ParsePackage parses an OPF document.
func ParsePackage(content []byte) (*Package, error) {
	var pkg Package
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}
	return &pkg, nil
}

// WritePackage serializes the package document with an XML declaration.
// Namespace declarations are pinned on the package and metadata elements
// because Go's decoder does not carry prefixed xmlns attributes through
// the round trip.
func WritePackage(pkg *Package) ([]byte, error) {
	pkg.XMLNS = nsOPF
	pkg.Metadata.XMLNSDC = nsDC
	pkg.Metadata.XMLNSOPF = nsOPF

	out, err := xml.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize package document: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Item returns the manifest item with the given id.
func (p *Package) Item(id string) (ManifestItem, bool) {
	for _, it := range p.Manifest.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ManifestItem{}, false
}

// Title extracts the dc:title from the opaque metadata block. Returns ""
// when the book has none.
func (p *Package) Title() string {
	var md struct {
		Titles []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	}
	doc := `<metadata xmlns:dc="` + nsDC + `">` + p.Metadata.InnerXML + `</metadata>`
	if err := xml.Unmarshal([]byte(doc), &md); err != nil {
		return ""
	}
	if len(md.Titles) == 0 {
		return ""
	}
	return strings.TrimSpace(md.Titles[0])
}
