package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

type baselineRepository struct {
	mu        sync.RWMutex
	baselines map[string]*model.Baseline
}

func newBaselineRepository() *baselineRepository {
	return &baselineRepository{
		baselines: make(map[string]*model.Baseline),
	}
}

func copyBaseline(b *model.Baseline) *model.Baseline {
	return &model.Baseline{
		Name:         b.Name,
		CreatedAt:    b.CreatedAt,
		Requirements: slices.Clone(b.Requirements),
		Items:        slices.Clone(b.Items),
	}
}

func (r *baselineRepository) Get(ctx context.Context, name string) (*model.Baseline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.baselines[name]
	if !ok {
		return nil, goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
	}
	return copyBaseline(b), nil
}

func (r *baselineRepository) Put(ctx context.Context, baseline *model.Baseline) error {
	if baseline.Name == "" {
		return goerr.Wrap(model.ErrInvalidBaselineName, "baseline has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.baselines[baseline.Name] = copyBaseline(baseline)
	return nil
}

func (r *baselineRepository) List(ctx context.Context) ([]*model.BaselineSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]*model.BaselineSummary, 0, len(r.baselines))
	for _, b := range r.baselines {
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

func (r *baselineRepository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.baselines[name]; !ok {
		return goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
	}
	delete(r.baselines, name)
	return nil
}
