package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type baselineItemDoc struct {
	Requirement     string  `firestore:"Requirement"`
	RequirementNorm string  `firestore:"RequirementNorm"`
	Classification  string  `firestore:"Classification"`
	Confidence      float64 `firestore:"Confidence"`
}

type baselineDoc struct {
	Name         string            `firestore:"Name"`
	CreatedAt    time.Time         `firestore:"CreatedAt"`
	Requirements []string          `firestore:"Requirements"`
	Items        []baselineItemDoc `firestore:"Items"`
}

func toBaselineDoc(b *model.Baseline) *baselineDoc {
	d := &baselineDoc{
		Name:         b.Name,
		CreatedAt:    b.CreatedAt,
		Requirements: b.Requirements,
		Items:        make([]baselineItemDoc, len(b.Items)),
	}
	for i, item := range b.Items {
		d.Items[i] = baselineItemDoc{
			Requirement:     item.Requirement,
			RequirementNorm: item.RequirementNorm,
			Classification:  item.Classification.String(),
			Confidence:      item.Confidence,
		}
	}
	return d
}

func fromBaselineDoc(d *baselineDoc) *model.Baseline {
	b := &model.Baseline{
		Name:         d.Name,
		CreatedAt:    d.CreatedAt,
		Requirements: d.Requirements,
		Items:        make([]model.BaselineItem, len(d.Items)),
	}
	for i, item := range d.Items {
		b.Items[i] = model.BaselineItem{
			Requirement:     item.Requirement,
			RequirementNorm: item.RequirementNorm,
			Classification:  types.Classification(item.Classification),
			Confidence:      item.Confidence,
		}
	}
	return b
}

type baselineRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newBaselineRepository(client *firestore.Client) *baselineRepository {
	return &baselineRepository{
		client: client,
	}
}

func (r *baselineRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "baselines")
}

func (r *baselineRepository) Get(ctx context.Context, name string) (*model.Baseline, error) {
	doc, err := r.collection().Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to get baseline", goerr.V("name", name))
	}

	var d baselineDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal baseline", goerr.V("name", name))
	}
	return fromBaselineDoc(&d), nil
}

func (r *baselineRepository) Put(ctx context.Context, baseline *model.Baseline) error {
	if baseline.Name == "" {
		return goerr.Wrap(model.ErrInvalidBaselineName, "baseline has no name")
	}
	if _, err := r.collection().Doc(baseline.Name).Set(ctx, toBaselineDoc(baseline)); err != nil {
		return goerr.Wrap(err, "failed to save baseline", goerr.V("name", baseline.Name))
	}
	return nil
}

func (r *baselineRepository) List(ctx context.Context) ([]*model.BaselineSummary, error) {
	iter := r.collection().OrderBy("Name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	summaries := make([]*model.BaselineSummary, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate baselines")
		}

		var d baselineDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal baseline", goerr.V("id", doc.Ref.ID))
		}
		summaries = append(summaries, &model.BaselineSummary{
			Name:      d.Name,
			CreatedAt: d.CreatedAt,
			Items:     len(d.Items),
		})
	}

	return summaries, nil
}

func (r *baselineRepository) Delete(ctx context.Context, name string) error {
	docRef := r.collection().Doc(name)

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return goerr.Wrap(err, "failed to get baseline", goerr.V("name", name))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete baseline", goerr.V("name", name))
	}
	return nil
}
