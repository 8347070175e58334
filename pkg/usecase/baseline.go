package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/differ"
)

// SaveBaseline snapshots results under name, replacing any baseline already stored there
func (uc *UseCases) SaveBaseline(ctx context.Context, name string, results []*model.GapResult) (*model.Baseline, error) {
	safeName, err := model.SafeBaselineName(name)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyRequirements, "baseline needs at least one result", goerr.V("name", safeName))
	}

	baseline := differ.Snapshot(safeName, results, uc.now().UTC())
	if err := uc.baselines.Put(ctx, baseline); err != nil {
		return nil, goerr.Wrap(err, "failed to save baseline", goerr.V("name", safeName))
	}
	return baseline, nil
}

func (uc *UseCases) GetBaseline(ctx context.Context, name string) (*model.Baseline, error) {
	safeName, err := model.SafeBaselineName(name)
	if err != nil {
		return nil, err
	}
	baseline, err := uc.baselines.Get(ctx, safeName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load baseline", goerr.V("name", safeName))
	}
	return baseline, nil
}

func (uc *UseCases) ListBaselines(ctx context.Context) ([]*model.BaselineSummary, error) {
	summaries, err := uc.baselines.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list baselines")
	}
	return summaries, nil
}

// DeleteBaseline returns model.ErrBaselineNotFound when nothing is stored under name
func (uc *UseCases) DeleteBaseline(ctx context.Context, name string) error {
	safeName, err := model.SafeBaselineName(name)
	if err != nil {
		return err
	}
	if err := uc.baselines.Delete(ctx, safeName); err != nil {
		return goerr.Wrap(err, "failed to delete baseline", goerr.V("name", safeName))
	}
	return nil
}
