// Package safe releases resources on paths where the close error has nowhere to go.
package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// Close closes c and logs a failure under the given resource name. nil is ignored.
func Close(ctx context.Context, c io.Closer, resource string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close resource", "resource", resource, "error", err.Error())
	}
}
