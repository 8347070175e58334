package notion

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// Source reads the pages of one Notion database as documents
type Source struct {
	api        *notionapi.Client
	databaseID string
	scope      string
	since      time.Time
}

var _ interfaces.DocumentSource = &Source{}

// Option is a functional option for Source configuration
type Option func(*Source)

// WithScope sets the scope label attached to every document. Defaults to the database ID.
func WithScope(scope string) Option {
	return func(s *Source) {
		if scope != "" {
			s.scope = scope
		}
	}
}

// WithSince limits the source to pages edited on or after t
func WithSince(t time.Time) Option {
	return func(s *Source) {
		s.since = t
	}
}

// New creates a Notion source for databaseID
func New(token, databaseID string, opts ...Option) (*Source, error) {
	if token == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "Notion API token is required")
	}
	if databaseID == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "Notion database ID is required")
	}

	s := &Source{
		api: notionapi.NewClient(
			notionapi.Token(token),
			notionapi.WithRetry(3), // Retry up to 3 times on rate limit (HTTP 429)
		),
		databaseID: databaseID,
		scope:      databaseID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Source) Name() string {
	return "notion:" + s.databaseID
}

// Documents yields every page of the database. A page that fails to load is reported
// and iteration continues with the next one.
func (s *Source) Documents(ctx context.Context) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		var cursor notionapi.Cursor

		for {
			req := &notionapi.DatabaseQueryRequest{
				StartCursor: cursor,
				PageSize:    100,
			}
			if !s.since.IsZero() {
				onOrAfter := notionapi.Date(s.since)
				req.Filter = &notionapi.TimestampFilter{
					Timestamp: "last_edited_time",
					LastEditedTime: &notionapi.DateFilterCondition{
						OnOrAfter: &onOrAfter,
					},
				}
			}

			resp, err := s.api.Database.Query(ctx, notionapi.DatabaseID(s.databaseID), req)
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to query database", goerr.V("database_id", s.databaseID)))
				return
			}

			for _, page := range resp.Results {
				doc, err := s.toDocument(ctx, page)
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				if !yield(doc, nil) {
					return
				}
			}

			if !resp.HasMore {
				return
			}
			cursor = resp.NextCursor
		}
	}
}

func (s *Source) toDocument(ctx context.Context, page notionapi.Page) (*model.Document, error) {
	pageID := page.ID.String()

	blocks, err := s.fetchBlocks(ctx, pageID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch page blocks", goerr.V("page_id", pageID))
	}

	title := pageTitle(page.Properties)
	logging.From(ctx).Debug("fetched notion page", "page_id", pageID, "title", title, "blocks", len(blocks))

	return &model.Document{
		Source:    model.SourceKindNotion,
		SourceID:  pageID,
		Title:     title,
		URL:       page.URL,
		Scope:     s.scope,
		UpdatedAt: time.Time(page.LastEditedTime),
		Text:      blocks.PlainText(),
	}, nil
}

// fetchBlocks retrieves all blocks under blockID, including nested children
func (s *Source) fetchBlocks(ctx context.Context, blockID string) (Blocks, error) {
	var blocks Blocks
	var cursor notionapi.Cursor

	for {
		resp, err := s.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get block children", goerr.V("block_id", blockID))
		}

		for _, obj := range resp.Results {
			block := convertBlock(obj)
			if obj.GetHasChildren() {
				children, err := s.fetchBlocks(ctx, obj.GetID().String())
				if err != nil {
					return nil, err
				}
				block.Children = children
			}
			blocks = append(blocks, block)
		}

		if !resp.HasMore {
			return blocks, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

func pageTitle(props notionapi.Properties) string {
	for _, prop := range props {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			return richText(p.Title)
		case notionapi.TitleProperty:
			return richText(p.Title)
		}
	}
	return ""
}

func richText(rt []notionapi.RichText) string {
	var sb strings.Builder
	for _, t := range rt {
		sb.WriteString(t.PlainText)
	}
	return sb.String()
}
