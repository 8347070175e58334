package github

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/doctext"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/shurcooL/githubv4"
)

type querier interface {
	Query(ctx context.Context, q any, variables map[string]any) error
}

// Repository points at a directory of documentation in a GitHub repository
type Repository struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

func (r Repository) fullName() string {
	return r.Owner + "/" + r.Repo
}

// Source reads documentation files of a repository through the GraphQL API
type Source struct {
	gql  querier
	repo Repository
}

var _ interfaces.DocumentSource = &Source{}

// NewTransport creates a GitHub App installation transport.
// privateKey can be a PEM string or a file path to a PEM file.
func NewTransport(appID, installationID int64, privateKey string) (http.RoundTripper, error) {
	var key []byte

	// #nosec G304 -- path comes from CLI flag, not user input
	if data, err := os.ReadFile(privateKey); err == nil {
		key = data
	} else {
		key = []byte(privateKey)
	}

	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}
	return tr, nil
}

// New creates a Source for repo authenticated by transport
func New(transport http.RoundTripper, repo Repository) (*Source, error) {
	if repo.Owner == "" || repo.Repo == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "GitHub owner and repo are required",
			goerr.V("owner", repo.Owner), goerr.V("repo", repo.Repo))
	}
	if repo.Ref == "" {
		repo.Ref = "HEAD"
	}
	repo.Path = strings.Trim(repo.Path, "/")

	return &Source{
		gql:  githubv4.NewClient(&http.Client{Transport: transport}),
		repo: repo,
	}, nil
}

func (s *Source) Name() string {
	return "github:" + s.repo.fullName() + "/" + s.repo.Path
}

// Documents walks the configured directory and yields every supported text file.
// Binary and unsupported files are skipped.
func (s *Source) Documents(ctx context.Context) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		s.walk(ctx, s.repo.Path, yield)
	}
}

// walk returns false when the consumer stopped iterating
func (s *Source) walk(ctx context.Context, dir string, yield func(*model.Document, error) bool) bool {
	var q treeQuery
	variables := map[string]any{
		"owner":      githubv4.String(s.repo.Owner),
		"name":       githubv4.String(s.repo.Repo),
		"expression": githubv4.String(s.repo.Ref + ":" + dir),
	}

	if err := s.gql.Query(ctx, &q, variables); err != nil {
		return yield(nil, goerr.Wrap(err, "failed to read repository tree",
			goerr.V("repository", s.repo.fullName()),
			goerr.V("path", dir)))
	}

	for _, entry := range q.Repository.Object.Tree.Entries {
		entryPath := path.Join(dir, string(entry.Name))

		switch entry.Type {
		case "tree":
			if !s.walk(ctx, entryPath, yield) {
				return false
			}

		case "blob":
			if !doctext.Supported(entryPath) {
				continue
			}
			blob := entry.Object.Blob
			if blob.IsBinary || blob.Text == nil {
				logging.From(ctx).Debug("skip non-text blob", "path", entryPath)
				continue
			}

			text, err := doctext.Extract(entryPath, []byte(*blob.Text))
			if err != nil {
				if !yield(nil, goerr.Wrap(err, "failed to extract text", goerr.V("path", entryPath))) {
					return false
				}
				continue
			}

			if !yield(s.document(entryPath, text), nil) {
				return false
			}
		}
	}
	return true
}

func (s *Source) document(filePath, text string) *model.Document {
	return &model.Document{
		Source:   model.SourceKindGitHub,
		SourceID: s.repo.fullName() + "/" + filePath,
		Title:    strings.TrimSuffix(path.Base(filePath), path.Ext(filePath)),
		URL:      fmt.Sprintf("https://github.com/%s/blob/%s/%s", s.repo.fullName(), s.repo.Ref, filePath),
		Scope:    s.repo.fullName(),
		Text:     text,
	}
}

type treeQuery struct {
	Repository struct {
		Object struct {
			Tree struct {
				Entries []treeEntry
			} `graphql:"... on Tree"`
		} `graphql:"object(expression: $expression)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type treeEntry struct {
	Name   githubv4.String
	Type   githubv4.String
	Object struct {
		Blob struct {
			Text     *githubv4.String
			IsBinary githubv4.Boolean
		} `graphql:"... on Blob"`
	}
}
