package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Mimetype is the required content of the EPUB mimetype entry.
const Mimetype = "application/epub+zip"

// Workdir is an EPUB extracted into a temporary directory. It is scoped to
// one rebuild: acquired by ExtractArchive, removed by Release on every exit
// path unless Retain was called.
type Workdir struct {
	root     string
	retained bool
}

// ExtractArchive unzips an EPUB into a fresh temporary directory.
func ExtractArchive(epubPath string) (*Workdir, error) {
	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}
	defer zr.Close()

	root, err := os.MkdirTemp("", "rechapter-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}

	wd := &Workdir{root: root}
	for _, f := range zr.File {
		if err := wd.extractEntry(f); err != nil {
			os.RemoveAll(root)
			return nil, err
		}
	}
	return wd, nil
}

// extractEntry writes one zip entry into the tree, rejecting paths that
// would escape the extraction root.
func (w *Workdir) extractEntry(f *zip.File) error {
	name := normalizePath(f.Name)
	if !isSafePath(name) {
		return fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}

	dst := filepath.Join(w.root, filepath.FromSlash(name))
	if strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(dst, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// Root returns the extraction root directory.
func (w *Workdir) Root() string {
	return w.root
}

// Retain marks the tree to survive Release, so a failed rebuild can be
// inspected on disk.
func (w *Workdir) Retain() {
	w.retained = true
}

// Retained reports whether Retain was called.
func (w *Workdir) Retained() bool {
	return w.retained
}

// Release removes the temporary tree unless it was retained.
func (w *Workdir) Release() error {
	if w.retained {
		return nil
	}
	return os.RemoveAll(w.root)
}

// ReadFile reads an EPUB-internal path from the tree.
func (w *Workdir) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(w.root, filepath.FromSlash(normalizePath(rel))))
}

// WriteFile writes an EPUB-internal path, creating parent directories as
// needed.
func (w *Workdir) WriteFile(rel string, data []byte) error {
	dst := filepath.Join(w.root, filepath.FromSlash(normalizePath(rel)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Remove deletes an EPUB-internal path from the tree.
func (w *Workdir) Remove(rel string) error {
	return os.Remove(filepath.Join(w.root, filepath.FromSlash(normalizePath(rel))))
}

// WriteArchive zips the tree to outPath. The mimetype entry comes first and
// is stored uncompressed, as the OCF spec requires; everything else is
// deflated in sorted order. The archive is written to a temporary file and
// renamed into place so a failed write never leaves a truncated output.
func (w *Workdir) WriteArchive(outPath string) error {
	var names []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk workdir: %w", err)
	}
	sort.Strings(names)

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".rechapter-*.epub")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if err := w.writeZip(tmp, names); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finish output file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return err
	}
	tmpPath = ""
	return nil
}

func (w *Workdir) writeZip(out io.Writer, names []string) error {
	zw := zip.NewWriter(out)

	mimetype := []byte(Mimetype)
	if data, err := w.ReadFile("mimetype"); err == nil {
		mimetype = data
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mw.Write(mimetype); err != nil {
		return fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	for _, name := range names {
		if name == "mimetype" {
			continue
		}
		data, err := w.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}

	return zw.Close()
}
