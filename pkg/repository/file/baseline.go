// Package file stores baselines as JSON files, one per baseline, in a directory.
package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/safe"
)

const ext = ".json"

// BaselineStore keeps each baseline in <dir>/<name>.json
type BaselineStore struct {
	dir string
}

var _ interfaces.BaselineRepository = &BaselineStore{}

// NewBaselineStore creates dir if needed
func NewBaselineStore(dir string) (*BaselineStore, error) {
	if dir == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "baseline directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create baseline directory", goerr.V("dir", dir))
	}
	return &BaselineStore{dir: dir}, nil
}

func (s *BaselineStore) path(name string) (string, error) {
	safeName, err := model.SafeBaselineName(name)
	if err != nil {
		return "", err
	}
	if safeName != name {
		return "", goerr.Wrap(model.ErrInvalidBaselineName, "baseline name is not sanitized", goerr.V("name", name))
	}
	return filepath.Join(s.dir, name+ext), nil
}

func (s *BaselineStore) Get(ctx context.Context, name string) (*model.Baseline, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to read baseline", goerr.V("path", p))
	}

	var b model.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, goerr.Wrap(err, "failed to parse baseline", goerr.V("path", p))
	}
	return &b, nil
}

// Put writes to a temporary file and renames it so readers never see a partial file
func (s *BaselineStore) Put(ctx context.Context, baseline *model.Baseline) error {
	p, err := s.path(baseline.Name)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(baseline, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode baseline", goerr.V("name", baseline.Name))
	}

	tmp, err := os.CreateTemp(s.dir, baseline.Name+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary baseline file", goerr.V("dir", s.dir))
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		safe.Close(ctx, tmp, tmp.Name())
		return goerr.Wrap(err, "failed to write baseline", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close baseline file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return goerr.Wrap(err, "failed to move baseline into place", goerr.V("path", p))
	}
	return nil
}

func (s *BaselineStore) List(ctx context.Context) ([]*model.BaselineSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read baseline directory", goerr.V("dir", s.dir))
	}

	summaries := make([]*model.BaselineSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		b, err := s.Get(ctx, strings.TrimSuffix(entry.Name(), ext))
		if err != nil {
			if errors.Is(err, model.ErrInvalidBaselineName) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, &model.BaselineSummary{
			Name:      b.Name,
			CreatedAt: b.CreatedAt,
			Items:     len(b.Items),
		})
	}

	slices.SortFunc(summaries, func(a, b *model.BaselineSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return summaries, nil
}

func (s *BaselineStore) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return goerr.Wrap(err, "failed to delete baseline", goerr.V("path", p))
	}
	return nil
}
