package github

import "context"

type QueryFunc func(ctx context.Context, q any, variables map[string]any) error

func (f QueryFunc) Query(ctx context.Context, q any, variables map[string]any) error {
	return f(ctx, q, variables)
}

// NewWithQuerierForTest creates a Source backed by a fake GraphQL endpoint
func NewWithQuerierForTest(fn QueryFunc, repo Repository) (*Source, error) {
	s, err := New(nil, repo)
	if err != nil {
		return nil, err
	}
	s.gql = fn
	return s, nil
}
