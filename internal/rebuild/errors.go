package rebuild

import "fmt"

// MalformedPackageError reports a package document that cannot support a
// rebuild: missing manifest or spine, or a spine reference with no manifest
// entry. Fatal before anything is written.
type MalformedPackageError struct {
	Path   string
	Reason string
}

func (e *MalformedPackageError) Error() string {
	return fmt.Sprintf("malformed package %s: %s", e.Path, e.Reason)
}

// ContentParseError reports a spine file that could not be loaded or parsed.
// Fatal: chapter boundaries cannot be trusted across a corrupt
// linearization, so no partial output is produced.
type ContentParseError struct {
	Path string
	Err  error
}

func (e *ContentParseError) Error() string {
	return fmt.Sprintf("failed to parse content file %s: %v", e.Path, e.Err)
}

func (e *ContentParseError) Unwrap() error { return e.Err }

// AssetResolutionError reports an asset reference that does not resolve to
// any manifest entry. Recovered locally: the reference is left as-is and the
// rebuild continues.
type AssetResolutionError struct {
	Ref    string
	Source string
}

func (e *AssetResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve asset reference %q in %s", e.Ref, e.Source)
}

// WriteError reports a failed manifest, chapter or archive write. Fatal; the
// working tree is retained for inspection.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
