package epub

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// normalizePath normalizes EPUB-internal paths (removes ./ prefix).
func normalizePath(p string) string {
	return strings.TrimPrefix(p, "./")
}

// isSafePath checks whether p is an EPUB-internal path that does not escape
// the archive root via path traversal.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// ResolveRelative resolves href against the directory of basePath. Both are
// EPUB-internal, forward-slash paths. Returns "" when the result is absolute
// or escapes the archive root.
func ResolveRelative(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	joined := path.Join(path.Dir(basePath), href)
	cleaned := path.Clean(joined)
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// RelPath expresses target relative to fromDir. Both are EPUB-internal
// paths; the result uses forward slashes.
func RelPath(fromDir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(fromDir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
