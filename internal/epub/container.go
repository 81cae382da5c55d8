package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// ErrPackageNotFound reports that no package document could be located.
var ErrPackageNotFound = errors.New("package document not found")

// FindPackage returns the EPUB-internal path of the package document. It
// follows the META-INF/container.xml rootfile pointer, falling back to
// scanning the tree for the first *.opf file when the container is absent
// or empty.
func (w *Workdir) FindPackage() (string, error) {
	if data, err := w.ReadFile("META-INF/container.xml"); err == nil {
		var c container
		if err := xml.Unmarshal(data, &c); err != nil {
			return "", fmt.Errorf("failed to parse container.xml: %w", err)
		}
		for _, rf := range c.Rootfiles.Rootfile {
			if rf.FullPath == "" {
				continue
			}
			if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
				return normalizePath(rf.FullPath), nil
			}
		}
		if len(c.Rootfiles.Rootfile) > 0 && c.Rootfiles.Rootfile[0].FullPath != "" {
			return normalizePath(c.Rootfiles.Rootfile[0].FullPath), nil
		}
	}

	var found string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !d.IsDir() && strings.HasSuffix(d.Name(), ".opf") {
			rel, err := filepath.Rel(w.root, p)
			if err != nil {
				return err
			}
			found = filepath.ToSlash(rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrPackageNotFound
	}
	return found, nil
}
