package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

type queryHit struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title,omitempty"`
	URL        string  `json:"url,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}

func toQueryHits(hits []*model.ScoredChunk) []queryHit {
	out := make([]queryHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, queryHit{
			SourceID:   h.Chunk.SourceID,
			Title:      h.Chunk.Title,
			URL:        h.Chunk.URL,
			ChunkIndex: h.Chunk.Index,
			ChunkText:  h.Chunk.Text,
			Similarity: model.Round3(h.Similarity()),
			Score:      model.Round3(h.Score),
		})
	}
	return out
}

func cmdQuery() *cli.Command {
	var topK int
	var format string
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Number of chunks to return (0 uses --top-k)",
			Destination: &topK,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format [text|json]",
			Value:       formatText,
			Destination: &format,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:      "query",
		Aliases:   []string{"q"},
		Usage:     "Retrieve the chunks closest to a free-text question",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			question := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(question) == "" {
				return goerr.Wrap(model.ErrInvalidInput, "question is required")
			}

			uc, cleanup, err := appCfg.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			hits, err := uc.Query(ctx, question, topK)
			if err != nil {
				return err
			}

			if format == formatJSON {
				return writeJSON(os.Stdout, toQueryHits(hits))
			}
			return renderHits(os.Stdout, hits)
		},
	}
}
