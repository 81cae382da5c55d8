package rebuild

import (
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/ebooktools/rechapter/internal/epub"
)

// Options configures a single rebuild.
type Options struct {
	InputPath    string
	OutputPath   string
	HeadingLevel int // heading level that starts a chapter, 1-6; default 1
	Logger       *slog.Logger
}

// Pipeline runs one EPUB through the restructuring engine: read the package
// model, linearize the spine content, segment at chapter boundaries, emit
// the new chapter files, regenerate the manifests and write the output
// archive. Strictly linear, single pass.
type Pipeline struct {
	opts Options
}

// NewPipeline creates a pipeline, applying option defaults.
func NewPipeline(opts Options) *Pipeline {
	if opts.HeadingLevel < 1 || opts.HeadingLevel > 6 {
		opts.HeadingLevel = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts}
}

// Rebuild executes the pipeline. The extraction workdir is released on
// every exit path except a failed write, where it is retained for
// inspection.
func (p *Pipeline) Rebuild() error {
	wd, err := epub.ExtractArchive(p.opts.InputPath)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", p.opts.InputPath, err)
	}
	defer wd.Release()

	opfPath, err := wd.FindPackage()
	if err != nil {
		return &MalformedPackageError{Path: p.opts.InputPath, Reason: err.Error()}
	}
	data, err := wd.ReadFile(opfPath)
	if err != nil {
		return &MalformedPackageError{Path: opfPath, Reason: err.Error()}
	}
	pkg, err := epub.ParsePackage(data)
	if err != nil {
		return &MalformedPackageError{Path: opfPath, Reason: err.Error()}
	}
	if err := validatePackage(pkg, opfPath); err != nil {
		return err
	}
	opfDir := path.Dir(opfPath)

	lin, err := Linearize(wd, pkg, opfDir)
	if err != nil {
		return err
	}
	if len(lin.Nodes) == 0 {
		return &MalformedPackageError{Path: opfPath, Reason: "spine references no restructurable content"}
	}

	headingTag := fmt.Sprintf("h%d", p.opts.HeadingLevel)
	chapters := Segment(lin, headingTag, pkg.Title())
	p.opts.Logger.Info("segmented", "input", p.opts.InputPath, "chapters", len(chapters))

	// Sources go before the chapter files: a source already named
	// chapterNN.xhtml in the OPF dir would otherwise be removed after its
	// replacement was written.
	superseded := make(map[string]bool, len(lin.Sources))
	for _, src := range lin.Sources {
		superseded[src] = true
		if err := wd.Remove(src); err != nil {
			wd.Retain()
			return &WriteError{Path: src, Err: err}
		}
	}

	emitter := NewEmitter(pkg, opfDir, p.opts.Logger)
	for _, ch := range chapters {
		out, err := emitter.Emit(ch)
		if err != nil {
			return err
		}
		dst := joinOPF(opfDir, ch.FileName)
		if err := wd.WriteFile(dst, out); err != nil {
			wd.Retain()
			return &WriteError{Path: dst, Err: err}
		}
	}

	reg := NewRegenerator(wd, pkg, opfDir, p.opts.Logger)
	reg.RewritePackage(chapters, superseded)
	entries := reg.NavigationEntries(chapters)
	if err := reg.RewriteNav(entries); err != nil {
		retainOnWrite(wd, err)
		return err
	}
	if err := reg.RewriteNCX(entries); err != nil {
		retainOnWrite(wd, err)
		return err
	}
	if err := reg.WriteOPF(opfPath); err != nil {
		retainOnWrite(wd, err)
		return err
	}

	if err := wd.WriteArchive(p.opts.OutputPath); err != nil {
		wd.Retain()
		return &WriteError{Path: p.opts.OutputPath, Err: err}
	}
	return nil
}

// validatePackage rejects packages the rebuild cannot keep consistent.
func validatePackage(pkg *epub.Package, opfPath string) error {
	if len(pkg.Manifest.Items) == 0 {
		return &MalformedPackageError{Path: opfPath, Reason: "manifest is missing or empty"}
	}
	if len(pkg.Spine.ItemRefs) == 0 {
		return &MalformedPackageError{Path: opfPath, Reason: "spine is missing or empty"}
	}
	for _, ref := range pkg.Spine.ItemRefs {
		if _, ok := pkg.Item(ref.IDRef); !ok {
			return &MalformedPackageError{
				Path:   opfPath,
				Reason: fmt.Sprintf("spine itemref %q has no manifest entry", ref.IDRef),
			}
		}
	}
	return nil
}

// retainOnWrite keeps the workdir around when a write failed, so the
// partial tree can be inspected.
func retainOnWrite(wd *epub.Workdir, err error) {
	var we *WriteError
	if errors.As(err, &we) {
		wd.Retain()
	}
}
