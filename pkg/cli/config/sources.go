package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/service/github"
	"github.com/secmon-lab/gapcheck/pkg/service/localdocs"
	"github.com/secmon-lab/gapcheck/pkg/service/notion"
	"github.com/urfave/cli/v3"
)

// SourcesFile is the TOML list of documentation sources
type SourcesFile struct {
	Notion []NotionSource `toml:"notion"`
	GitHub []GitHubSource `toml:"github"`
	Local  []LocalSource  `toml:"local"`
}

// NotionSource is a wiki database. DatabaseID may be a notion.so URL.
type NotionSource struct {
	DatabaseID string    `toml:"database_id"`
	Scope      string    `toml:"scope"`
	Since      time.Time `toml:"since"`
}

// GitHubSource is a directory of a documentation repository
type GitHubSource struct {
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
	Path  string `toml:"path"`
	Ref   string `toml:"ref"`
}

// LocalSource is a directory on disk
type LocalSource struct {
	Path  string `toml:"path"`
	Scope string `toml:"scope"`
}

// Validate checks required fields of every entry
func (f *SourcesFile) Validate() error {
	for i, n := range f.Notion {
		if n.DatabaseID == "" {
			return goerr.Wrap(ErrInvalidSources, "notion database_id is required", goerr.V("index", i))
		}
	}
	for i, g := range f.GitHub {
		if g.Owner == "" || g.Repo == "" {
			return goerr.Wrap(ErrInvalidSources, "github owner and repo are required", goerr.V("index", i))
		}
	}
	for i, l := range f.Local {
		if l.Path == "" {
			return goerr.Wrap(ErrInvalidSources, "local path is required", goerr.V("index", i))
		}
	}
	if len(f.Notion)+len(f.GitHub)+len(f.Local) == 0 {
		return goerr.Wrap(ErrInvalidSources, "no sources defined")
	}
	return nil
}

// LoadSourcesFile reads and validates a sources file
func LoadSourcesFile(path string) (*SourcesFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read sources file", goerr.V("path", path))
	}

	var file SourcesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidSources, "failed to parse TOML sources file",
			goerr.V("path", path),
			goerr.V("reason", err.Error()))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "sources file validation failed", goerr.V("path", path))
	}
	return &file, nil
}

// Sources selects the documentation ingested by the ingest command and the serve worker
type Sources struct {
	path    string
	docsDir string
	notion  Notion
	github  GitHub
}

func (x *Sources) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "sources",
			Category:    "sources",
			Usage:       "Path to the TOML sources file",
			Sources:     cli.EnvVars("GAPCHECK_SOURCES"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        "docs-dir",
			Category:    "sources",
			Usage:       "Local documentation directory, added to the sources file entries",
			Sources:     cli.EnvVars("GAPCHECK_DOCS_DIR"),
			Destination: &x.docsDir,
		},
	}
	flags = append(flags, x.notion.Flags()...)
	return append(flags, x.github.Flags()...)
}

func (x Sources) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", x.path),
		slog.String("docs_dir", x.docsDir),
		slog.Any("notion", x.notion),
		slog.Attr{Key: "github", Value: slog.GroupValue(x.github.LogAttrs()...)},
	)
}

// IsConfigured reports whether any source was given
func (x *Sources) IsConfigured() bool {
	return x.path != "" || x.docsDir != ""
}

// Configure builds one DocumentSource per configured entry
func (x *Sources) Configure() ([]interfaces.DocumentSource, error) {
	file := &SourcesFile{}
	if x.path != "" {
		loaded, err := LoadSourcesFile(x.path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	if x.docsDir != "" {
		file.Local = append(file.Local, LocalSource{Path: x.docsDir})
	}
	return x.build(file)
}

func (x *Sources) build(file *SourcesFile) ([]interfaces.DocumentSource, error) {
	var sources []interfaces.DocumentSource

	for _, n := range file.Notion {
		dbID, err := notion.ParseDatabaseID(n.DatabaseID)
		if err != nil {
			return nil, err
		}
		src, err := notion.New(x.notion.Token(), dbID, notion.WithScope(n.Scope), notion.WithSince(n.Since))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if len(file.GitHub) > 0 {
		tr, err := x.github.Transport()
		if err != nil {
			return nil, err
		}
		for _, g := range file.GitHub {
			src, err := github.New(tr, github.Repository{Owner: g.Owner, Repo: g.Repo, Path: g.Path, Ref: g.Ref})
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}

	for _, l := range file.Local {
		src, err := localdocs.New(l.Path, l.Scope)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, nil
}
