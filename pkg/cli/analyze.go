package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// readInput reads the named file, or stdin when path is empty or "-"
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read requirements file", goerr.V("path", path))
	}
	return string(data), nil
}

func cmdAnalyze() *cli.Command {
	var requirements []string
	var baselineName string
	var saveBaseline string
	var topK int
	var format string
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "requirement",
			Aliases:     []string{"r"},
			Usage:       "Requirement to analyze (repeatable, replaces the input file)",
			Destination: &requirements,
		},
		&cli.StringFlag{
			Name:        "baseline",
			Aliases:     []string{"b"},
			Usage:       "Compare results against this saved baseline",
			Destination: &baselineName,
		},
		&cli.StringFlag{
			Name:        "save-baseline",
			Usage:       "Save results as a baseline under this name",
			Destination: &saveBaseline,
		},
		&cli.IntFlag{
			Name:        "k",
			Usage:       "Chunks retrieved per requirement (0 uses --top-k)",
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
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Classify requirements against the indexed documentation",
		ArgsUsage: "[requirements file | -]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			input := usecase.AnalyzeInput{
				Requirements: requirements,
				TopK:         topK,
				BaselineName: baselineName,
				SaveBaseline: saveBaseline,
			}
			if len(requirements) == 0 {
				text, err := readInput(c.Args().First(), os.Stdin)
				if err != nil {
					return err
				}
				input.Text = text
			}

			uc, cleanup, err := appCfg.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}
			// drift notifications must be delivered before the process exits
			defer uc.Wait()

			report, err := uc.Analyze(ctx, input)
			if err != nil {
				return err
			}

			if format == formatJSON {
				return writeJSON(os.Stdout, report)
			}
			return renderReport(os.Stdout, report)
		},
	}
}
