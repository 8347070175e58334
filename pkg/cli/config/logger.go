package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Logger holds logging flags
type Logger struct {
	level  string
	format string
	output string
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Category:    "logging",
			Aliases:     []string{"l"},
			Usage:       "Log level [debug|info|warn|error]",
			Value:       "info",
			Sources:     cli.EnvVars("GAPCHECK_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Category:    "logging",
			Usage:       "Log format [console|json]",
			Value:       "console",
			Sources:     cli.EnvVars("GAPCHECK_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Category:    "logging",
			Usage:       "Log output [stdout|stderr|<file path>]",
			Value:       "stderr",
			Sources:     cli.EnvVars("GAPCHECK_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Configure installs the default logger. The returned function closes the log file, if any.
func (x *Logger) Configure() (func(), error) {
	closer := func() {}

	level, ok := logLevels[strings.ToLower(x.level)]
	if !ok {
		return closer, goerr.Wrap(ErrInvalidLogLevel, "unknown log level", goerr.V("level", x.level))
	}

	var w io.Writer
	switch x.output {
	case "stdout", "-":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		f, err := os.OpenFile(x.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return closer, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = func() { _ = f.Close() }
	}

	handler, err := newLogHandler(x.format, w, level)
	if err != nil {
		closer()
		return func() {}, err
	}

	logging.SetDefault(slog.New(handler))
	return closer, nil
}

func newLogHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldPrefix("secret_"),
		masq.WithFieldName("APIKey"),
		masq.WithFieldName("Token"),
		masq.WithFieldName("PrivateKey"),
	)

	switch format {
	case "console", "":
		return clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(level <= slog.LevelDebug),
			clog.WithColorMap(&clog.ColorMap{
				Level: map[slog.Level]*color.Color{
					slog.LevelDebug: color.New(color.FgGreen, color.Bold),
					slog.LevelInfo:  color.New(color.FgCyan, color.Bold),
					slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
					slog.LevelError: color.New(color.FgRed, color.Bold),
				},
				LevelDefault: color.New(color.FgBlue, color.Bold),
				Time:         color.New(color.FgWhite),
				Message:      color.New(color.FgHiWhite),
				AttrKey:      color.New(color.FgHiCyan),
				AttrValue:    color.New(color.FgHiWhite),
			}),
		), nil

	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   level <= slog.LevelDebug,
			Level:       level,
			ReplaceAttr: filter,
		}), nil

	default:
		return nil, goerr.Wrap(ErrInvalidLogFormat, "unknown log format", goerr.V("format", format))
	}
}
