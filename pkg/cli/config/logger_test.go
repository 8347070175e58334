package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/cli/config"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

func TestLogger_Configure(t *testing.T) {
	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogLevel)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogFormat)
	})

	t.Run("json to file with masked secrets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gapcheck.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("hello", "secret_token", "xoxb-123", "collection", "chunks_test")
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.String(t, string(data)).Contains(`"msg":"hello"`)
		gt.String(t, string(data)).Contains("chunks_test")
		gt.String(t, string(data)).NotContains("xoxb-123")
	})
}
