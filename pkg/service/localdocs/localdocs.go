// Package localdocs reads documentation files from a local directory tree.
package localdocs

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/doctext"
)

// Source yields every supported file under a root directory
type Source struct {
	root  string
	scope string
}

var _ interfaces.DocumentSource = &Source{}

// New creates a Source for root. scope labels the documents and defaults to the directory name.
func New(root, scope string) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "document directory is not accessible",
			goerr.V("path", root), goerr.V("cause", err.Error()))
	}
	if !info.IsDir() {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "document path is not a directory", goerr.V("path", root))
	}
	if scope == "" {
		scope = filepath.Base(filepath.Clean(root))
	}
	return &Source{root: root, scope: scope}, nil
}

func (s *Source) Name() string {
	return "local:" + s.root
}

// Documents walks the tree in lexical order. Hidden directories are skipped.
func (s *Source) Documents(ctx context.Context) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		stopped := false
		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != s.root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !doctext.Supported(path) {
				return nil
			}

			doc, docErr := s.read(path, d)
			if !yield(doc, docErr) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(nil, goerr.Wrap(err, "failed to walk document directory", goerr.V("root", s.root)))
		}
	}
}

func (s *Source) read(path string, d fs.DirEntry) (*model.Document, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve relative path", goerr.V("path", path))
	}
	rel = filepath.ToSlash(rel)

	// #nosec G304 -- path comes from walking the configured directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("path", path))
	}

	text, err := doctext.Extract(path, data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract document text", goerr.V("path", path))
	}

	doc := &model.Document{
		Source:   model.SourceKindLocal,
		SourceID: rel,
		Title:    strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
		Scope:    s.scope,
		Text:     text,
	}
	if info, err := d.Info(); err == nil {
		doc.UpdatedAt = info.ModTime().UTC()
	}
	return doc, nil
}
