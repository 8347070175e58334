package localdocs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/localdocs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	gt.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755)).Required()
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
}

func TestSource_Documents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "checkout.md"), "# Checkout\n\nExpress checkout with Apple Pay.")
	writeFile(t, filepath.Join(root, "guides", "shipping.html"), "<h2>Shipping</h2><p>Per locale rates</p>")
	writeFile(t, filepath.Join(root, "guides", "notes.txt"), "plain notes")
	writeFile(t, filepath.Join(root, "guides", "diagram.png"), "binary")
	writeFile(t, filepath.Join(root, ".git", "README.md"), "hidden")

	src, err := localdocs.New(root, "")
	gt.NoError(t, err).Required()

	var docs []*model.Document
	for doc, err := range src.Documents(context.Background()) {
		gt.NoError(t, err).Required()
		docs = append(docs, doc)
	}

	gt.A(t, docs).Length(3)
	gt.Value(t, docs[0].SourceID).Equal("checkout.md")
	gt.Value(t, docs[0].Title).Equal("checkout")
	gt.Value(t, docs[0].Text).Equal("Checkout\nExpress checkout with Apple Pay.")
	gt.Value(t, docs[0].Source).Equal(model.SourceKindLocal)
	gt.Value(t, docs[0].Scope).Equal(filepath.Base(root))
	gt.Bool(t, docs[0].UpdatedAt.IsZero()).False()

	gt.Value(t, docs[1].SourceID).Equal("guides/notes.txt")
	gt.Value(t, docs[2].SourceID).Equal("guides/shipping.html")
	gt.Value(t, docs[2].Text).Equal("Shipping\nPer locale rates")
}

func TestSource_StopEarly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "b.md"), "b")

	src, err := localdocs.New(root, "docs")
	gt.NoError(t, err).Required()

	count := 0
	for range src.Documents(context.Background()) {
		count++
		break
	}
	gt.Number(t, count).Equal(1)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := localdocs.New(filepath.Join(t.TempDir(), "missing"), "")
	gt.Error(t, err).Is(model.ErrInvalidConfig)

	file := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, file, "x")
	_, err = localdocs.New(file, "")
	gt.Error(t, err).Is(model.ErrInvalidConfig)
}
