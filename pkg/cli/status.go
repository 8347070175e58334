package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type statusOutput struct {
	*usecase.IndexStatus
	Document []indexedChunk `json:"document,omitempty"`
}

type indexedChunk struct {
	ID          model.ChunkID `json:"id"`
	Index       int           `json:"index"`
	ContentHash string        `json:"content_hash"`
	Text        string        `json:"text"`
}

func cmdStatus() *cli.Command {
	var source, sourceID, format string
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Usage:       "Source kind of a document to list [notion|github|local]",
			Destination: &source,
		},
		&cli.StringFlag{
			Name:        "source-id",
			Usage:       "Source ID of a document to list; requires --source",
			Destination: &sourceID,
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
		Name:  "status",
		Usage: "Show the size of the vector index, or the chunks of one document",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if (source == "") != (sourceID == "") {
				return goerr.Wrap(model.ErrInvalidInput, "--source and --source-id must be given together")
			}

			uc, cleanup, err := appCfg.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			st, err := uc.IndexStatus(ctx)
			if err != nil {
				return err
			}

			var chunks []*model.Chunk
			if sourceID != "" {
				chunks, err = uc.DocumentChunks(ctx, model.SourceKind(source), sourceID)
				if err != nil {
					return err
				}
			}

			if format == formatJSON {
				return writeJSON(os.Stdout, toStatusOutput(st, chunks))
			}
			return renderStatus(os.Stdout, st, chunks)
		},
	}
}

func toStatusOutput(st *usecase.IndexStatus, chunks []*model.Chunk) statusOutput {
	out := statusOutput{IndexStatus: st}
	for _, c := range chunks {
		out.Document = append(out.Document, indexedChunk{
			ID:          c.ID,
			Index:       c.Index,
			ContentHash: c.ContentHash,
			Text:        c.Text,
		})
	}
	return out
}

func renderStatus(w io.Writer, st *usecase.IndexStatus, chunks []*model.Chunk) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s/%s (%d dims)\n", color.New(color.Bold).Sprint(st.Collection),
		st.Embedding.Provider, st.Embedding.Model, st.Embedding.Dimension)
	fmt.Fprintf(&b, "chunks: %d\n", st.Chunks)

	if chunks != nil {
		if len(chunks) == 0 {
			b.WriteString("document is not indexed\n")
		}
		for _, c := range chunks {
			fmt.Fprintf(&b, "#%d  %s\n   %s\n", c.Index, c.ID, c.Text)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return goerr.Wrap(err, "failed to write status")
	}
	return nil
}
