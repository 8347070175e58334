// Package gcs stores baselines as JSON objects in a Cloud Storage bucket.
package gcs

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/safe"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	ext               = ".json"
	metaCreatedAt     = "created_at"
	metaItems         = "items"
	objectContentType = "application/json"
)

// BaselineStore keeps each baseline in gs://<bucket>/<prefix><name>.json
type BaselineStore struct {
	client     *storage.Client
	bucket     string
	prefix     string
	clientOpts []option.ClientOption
}

var _ interfaces.BaselineRepository = &BaselineStore{}

type Option func(*BaselineStore)

// WithClientOptions passes options such as an emulator endpoint to the storage client
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *BaselineStore) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithPrefix sets the object name prefix, e.g. "baselines/"
func WithPrefix(prefix string) Option {
	return func(s *BaselineStore) {
		s.prefix = prefix
	}
}

func NewBaselineStore(ctx context.Context, bucket string, opts ...Option) (*BaselineStore, error) {
	if bucket == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "baseline bucket is required")
	}

	s := &BaselineStore{
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(s)
	}

	client, err := storage.NewClient(ctx, s.clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	s.client = client
	return s, nil
}

func (s *BaselineStore) Close() error {
	return s.client.Close()
}

func (s *BaselineStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + name + ext)
}

func (s *BaselineStore) Get(ctx context.Context, name string) (*model.Baseline, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to open baseline object",
			goerr.V("bucket", s.bucket),
			goerr.V("name", name))
	}
	defer safe.Close(ctx, r, s.object(name).ObjectName())

	var b model.Baseline
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, goerr.Wrap(err, "failed to parse baseline object", goerr.V("name", name))
	}
	return &b, nil
}

func (s *BaselineStore) Put(ctx context.Context, baseline *model.Baseline) error {
	if baseline.Name == "" {
		return goerr.Wrap(model.ErrInvalidBaselineName, "baseline has no name")
	}

	raw, err := json.Marshal(baseline)
	if err != nil {
		return goerr.Wrap(err, "failed to encode baseline", goerr.V("name", baseline.Name))
	}

	// canceling ctx aborts the upload; Close would commit a partial object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.object(baseline.Name).NewWriter(ctx)
	w.ContentType = objectContentType
	w.Metadata = map[string]string{
		metaCreatedAt: baseline.CreatedAt.UTC().Format(time.RFC3339Nano),
		metaItems:     strconv.Itoa(len(baseline.Items)),
	}

	if _, err := w.Write(raw); err != nil {
		cancel()
		return goerr.Wrap(err, "failed to write baseline object", goerr.V("name", baseline.Name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload baseline object",
			goerr.V("bucket", s.bucket),
			goerr.V("name", baseline.Name))
	}
	return nil
}

// List reads summaries from object metadata without downloading baselines
func (s *BaselineStore) List(ctx context.Context) ([]*model.BaselineSummary, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})

	summaries := make([]*model.BaselineSummary, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list baseline objects", goerr.V("bucket", s.bucket))
		}
		if !strings.HasSuffix(attrs.Name, ext) {
			continue
		}

		name := strings.TrimSuffix(strings.TrimPrefix(attrs.Name, s.prefix), ext)
		if strings.Contains(name, "/") {
			continue
		}

		summary := &model.BaselineSummary{Name: name, CreatedAt: attrs.Created}
		if v, ok := attrs.Metadata[metaCreatedAt]; ok {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				summary.CreatedAt = t
			}
		}
		if v, ok := attrs.Metadata[metaItems]; ok {
			summary.Items, _ = strconv.Atoi(v)
		}
		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b *model.BaselineSummary) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return summaries, nil
}

func (s *BaselineStore) Delete(ctx context.Context, name string) error {
	if err := s.object(name).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return goerr.Wrap(model.ErrBaselineNotFound, "baseline not found", goerr.V("name", name))
		}
		return goerr.Wrap(err, "failed to delete baseline object", goerr.V("name", name))
	}
	return nil
}
